package storage

import "io"

// BlobStore holds exercise media: listening-task audio, image-choice
// pictures, dictation recordings. Keys are slash-separated paths under
// a media namespace, e.g. "exercises/<id>/prompt.mp3".
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	URL(key string) (string, error) // fs returns "file://..." for dev
}
