// Package acquire downloads a corpus and prepares its raw recording and
// supervision manifests with the external lhotse CLI.
//
// The download is skipped when data/<corpus> already exists. Preparation
// writes <dataset>_recordings_<split> and <dataset>_supervisions_<split> for
// every split into manifests/<family>/. A split counts as acquired once its
// recordings exist and either its raw supervisions or one of its cut-sets do,
// because namespacing deletes the raw supervisions.
package acquire
