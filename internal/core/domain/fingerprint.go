package domain

// Fingerprint is a cheap identity of a file's content at a point in time.
// Missing files are represented explicitly so "file appeared" and "file
// changed" both register as a difference.
type Fingerprint struct {
	// Exists reports whether the file was present.
	Exists bool
	// Sum is the content digest. Only meaningful when Exists is true.
	Sum uint64
}

// Equal reports whether two fingerprints describe the same content state.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Exists == o.Exists && f.Sum == o.Sum
}
