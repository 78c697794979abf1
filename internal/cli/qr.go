package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/devtoolshub/devtools-hub/internal/qr"
)

// QR renders a code. Binary formats go to outputPath, or stdout when it is empty; text
// formats are printed unless a path is given.
func (r *Runner) QR(ctx context.Context, renderer *qr.Renderer, opts qr.Options, outputPath string) error {
	img, err := renderer.Render(ctx, opts)
	if err != nil {
		return err
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, img.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
		r.infof("Wrote %dx%d module QR code to %s", img.Modules, img.Modules, outputPath)
		return nil
	}

	if r.output == OutputJSON {
		out := map[string]any{"mimeType": img.MIMEType, "modules": img.Modules}
		if img.IsText() || opts.Format == qr.FormatDataURL {
			out["data"] = string(img.Data)
		} else {
			out["data"] = img.Data
		}
		return r.writeJSON(out)
	}

	if _, err := r.out.Write(img.Data); err != nil {
		return err
	}
	if img.IsText() || opts.Format == qr.FormatDataURL {
		_, err = fmt.Fprintln(r.out)
	}
	return err
}
