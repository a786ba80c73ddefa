package media

import (
	"io"
	"os"

	exif "github.com/dsoprea/go-exif/v3"
)

// exifScanLimit is how much of a file is searched for an EXIF block.
// APP1 sits near the start of a JPEG.
const exifScanLimit = 256 * 1024

// notableTags are the EXIF tags worth surfacing: location, device
// identity and authorship.
var notableTags = map[string]bool{
	"GPSLatitude":        true,
	"GPSLatitudeRef":     true,
	"GPSLongitude":       true,
	"GPSLongitudeRef":    true,
	"Make":               true,
	"Model":              true,
	"SerialNumber":       true,
	"CameraSerialNumber": true,
	"BodySerialNumber":   true,
	"LensSerialNumber":   true,
	"Software":           true,
	"Artist":             true,
	"Copyright":          true,
	"DateTimeOriginal":   true,
}

func isJPEG(ext string) bool {
	return ext == ".jpg" || ext == ".jpeg"
}

// ReadEXIF returns the notable EXIF tags of the image at path.
// A file without EXIF data yields an error from go-exif.
func ReadEXIF(path string) (map[string]string, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from the run folder
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, exifScanLimit))
	if err != nil {
		return nil, err
	}
	return ExtractEXIF(head)
}

// ExtractEXIF returns the notable EXIF tags found in data.
func ExtractEXIF(data []byte) (map[string]string, error) {
	raw, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return nil, err
	}

	entries, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return nil, err
	}

	tags := make(map[string]string)
	for _, entry := range entries {
		if notableTags[entry.TagName] {
			tags[entry.TagName] = entry.Formatted
		}
	}
	return tags, nil
}
