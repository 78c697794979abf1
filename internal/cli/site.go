package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/catalog"
	"github.com/devtoolshub/devtools-hub/internal/config"
)

// Sitemap prints the XML sitemap of the catalogue
func (r *Runner) Sitemap(baseURL string, lastMod time.Time) error {
	data, err := catalog.Sitemap(baseURL, lastMod)
	if err != nil {
		return err
	}
	_, err = r.out.Write(data)
	return err
}

type configSummary struct {
	Path      string   `json:"path,omitempty"`
	Valid     bool     `json:"valid"`
	Transport string   `json:"transport"`
	History   string   `json:"history"`
	Identity  string   `json:"identity"`
	QR        string   `json:"qr"`
	Morse     string   `json:"morse"`
	Problems  []string `json:"problems,omitempty"`
}

// ValidateConfig loads the config file at path and reports a summary. It returns an
// error when the file cannot be parsed or any setting is invalid.
func (r *Runner) ValidateConfig(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if path == "" {
		path, _ = config.DefaultPath()
	}

	summary := configSummary{
		Path:      path,
		Transport: cfg.Server.Transport,
		History:   "disabled",
		Identity:  "none",
		QR:        fmt.Sprintf("style %s, %dpx, ECC %s, margin %d", cfg.QR.Style, cfg.QR.Size, cfg.QR.ECC, cfg.QR.Margin),
		Morse:     fmt.Sprintf("%d wpm at %g Hz", cfg.Morse.WPM, cfg.Morse.Frequency),
	}
	if cfg.History.Enabled {
		summary.History = fmt.Sprintf("%s backend, %d day retention", cfg.History.Backend, cfg.History.RetentionDays)
	}
	switch {
	case cfg.Identity.JWKSURL != "":
		summary.Identity = "JWT via JWKS " + cfg.Identity.JWKSURL
	case cfg.Identity.JWTSecret != "":
		summary.Identity = "JWT via shared secret"
	case cfg.Identity.UserEmail != "":
		summary.Identity = "static " + cfg.Identity.UserEmail
	}

	verr := cfg.Validate()
	summary.Valid = verr == nil
	if verr != nil {
		var joined interface{ Unwrap() []error }
		if errors.As(verr, &joined) {
			for _, e := range joined.Unwrap() {
				summary.Problems = append(summary.Problems, e.Error())
			}
		} else {
			summary.Problems = []string{verr.Error()}
		}
	}

	if r.output == OutputJSON {
		if err := r.writeJSON(summary); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(r.out, "Config:    %s\n", summary.Path)
		_, _ = fmt.Fprintf(r.out, "Transport: %s\n", summary.Transport)
		_, _ = fmt.Fprintf(r.out, "History:   %s\n", summary.History)
		_, _ = fmt.Fprintf(r.out, "Identity:  %s\n", summary.Identity)
		_, _ = fmt.Fprintf(r.out, "QR:        %s\n", summary.QR)
		_, _ = fmt.Fprintf(r.out, "Morse:     %s\n", summary.Morse)
		for _, p := range summary.Problems {
			r.warnf("  - %s", p)
		}
	}

	if verr != nil {
		return fmt.Errorf("config has %d problem(s)", len(summary.Problems))
	}
	return nil
}
