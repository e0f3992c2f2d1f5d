package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"image"
	"image/png"
	"log/slog"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

// ChromeRenderer renders HTML templates to PNG with headless Chrome.
type ChromeRenderer struct {
	// ExecPath overrides the browser binary chromedp starts.
	ExecPath string
	// Settle is the wait between loading the page and the screenshot.
	Settle time.Duration
	Logger *slog.Logger
}

func (r ChromeRenderer) Render(ctx context.Context, kind model.DocumentKind, templatePath string, data any) (image.Image, error) {
	html, err := renderHTML(kind, templatePath, data)
	if err != nil {
		return nil, err
	}

	pngBytes, err := r.screenshot(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("failed generating image: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}
	if r.Logger != nil {
		r.Logger.Debug("page rendered", "kind", kind, "bounds", img.Bounds().String())
	}
	return img, nil
}

// renderHTML executes the template at templatePath, or the built-in
// template for kind when templatePath is empty.
func renderHTML(kind model.DocumentKind, templatePath string, data any) (string, error) {
	var (
		tmpl *template.Template
		err  error
	)
	if templatePath != "" {
		tmpl, err = template.New(filepath.Base(templatePath)).ParseFiles(templatePath)
	} else {
		name := string(kind) + ".html"
		tmpl, err = template.New(name).ParseFS(defaultTemplates, "templates/"+name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var htmlBuffer bytes.Buffer
	if err := tmpl.Execute(&htmlBuffer, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return htmlBuffer.String(), nil
}

func (r ChromeRenderer) screenshot(ctx context.Context, html string) ([]byte, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	switch {
	case r.ExecPath != "":
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	case runtime.GOOS == "darwin":
		opts = append(opts, chromedp.ExecPath("/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"))
	}
	opts = append(opts,
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	cdpCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	settle := r.Settle
	if settle <= 0 {
		settle = 300 * time.Millisecond
	}

	var pngBytes []byte
	err := chromedp.Run(cdpCtx,
		chromedp.Navigate("data:text/html,"+urlEncode(html)),
		chromedp.Sleep(settle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, err := page.CaptureScreenshot().
				WithCaptureBeyondViewport(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pngBytes = buf
			return nil
		}),
	)
	return pngBytes, err
}

// urlEncode escapes html for a data URL.
func urlEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
