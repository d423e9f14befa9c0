// Package schemas defines the wire schemas exchanged with the remote
// pipeline service.
package schemas

// FileFormat represents the different formats files can be uploaded in.
type FileFormat string

const (
	FileFormatHex    FileFormat = "hex"
	FileFormatBinary FileFormat = "binary"
)

// FileBase carries the fields shared by file create and get schemas.
type FileBase struct {
	Name string `json:"name"`
	// hex is the default purely for backwards-compatibility
	FileFormat FileFormat `json:"file_format"`
}

// FileGet is the remote service's representation of a stored file.
type FileGet struct {
	FileBase

	ID   string `json:"id"`
	Path string `json:"path"`
	// Data holds hex-encoded bytes when the file is small enough to inline.
	Data *string `json:"data,omitempty"`
	// FileSize is the data size in bytes.
	FileSize int64 `json:"file_size"`
}

// FileCreate is the upload request for a file asset.
type FileCreate struct {
	FileBase

	FileBytes *string `json:"file_bytes,omitempty"`
}
