package codec

import "bytes"

type bytesWriter struct{ b []byte }

func (w *bytesWriter) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

func bytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }
