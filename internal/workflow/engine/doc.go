// Package engine runs a dataset's stage chain. Every stage is skipped when
// its outputs already exist, so re-running after an interruption resumes at
// the first incomplete stage. The first failure stops the dataset.
package engine
