package export

import (
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"

	"gridcrop/internal/crop"
)

// WriteZip packages all results into one archive, one PNG entry per cell.
// Cells without pixels get no entry.
func WriteZip(w io.Writer, results []crop.Result) error {
	if !Drawable(results) {
		return ErrNoResults
	}
	zw := zip.NewWriter(w)
	now := time.Now()
	for i, r := range results {
		if r.Empty() {
			continue
		}
		name := entryName(i, r)
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Store,
			Modified: now,
		})
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("add %s: %w", name, err)
		}
		if err := WritePNG(fw, r); err != nil {
			_ = zw.Close()
			return fmt.Errorf("encode %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}
