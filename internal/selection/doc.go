// Package selection computes the set of objects that still need rendering
// from a manifest snapshot and the output directory's current contents,
// applying the resume, retry, and dry-run policy.
package selection
