package model

// MediaKind tags a media reference as image or video.
type MediaKind string

const (
	// MediaImage is a resource referenced by <img src>.
	MediaImage MediaKind = "image"
	// MediaVideo is a resource referenced by <video src> or <source src>.
	MediaVideo MediaKind = "video"
)

// String returns the kind name.
func (k MediaKind) String() string {
	return string(k)
}

// Extensions returns the allow-listed file extensions for the kind.
func (k MediaKind) Extensions() []string {
	switch k {
	case MediaImage:
		return []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"}
	case MediaVideo:
		return []string{".mp4", ".webm", ".ogg", ".mov", ".avi", ".mkv"}
	default:
		return nil
	}
}

// Dir returns the name of the subfolder that holds the kind's downloads.
func (k MediaKind) Dir() string {
	return string(k) + "s"
}

// MediaReference is an absolute http(s) address of an embedded resource.
type MediaReference struct {
	URL  string
	Kind MediaKind
}

// DownloadResult is the outcome of one media acquisition.
// It never holds the payload; bytes are streamed straight to disk.
type DownloadResult struct {
	Ref MediaReference

	// OK is true when the file was fully written.
	OK bool

	// Skipped is true when the reference failed validation and no
	// request was made.
	Skipped bool

	// FileName is the base name of the written file.
	FileName string

	// Bytes is the number of bytes written.
	Bytes int64

	// Checksum is the hex SHA3-256 digest of the written bytes.
	Checksum string

	// EXIF holds notable EXIF tags of a downloaded JPEG when inspection
	// is enabled.
	EXIF map[string]string

	// Err is the failure cause when OK is false.
	Err error
}
