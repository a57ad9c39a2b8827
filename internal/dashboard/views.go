package dashboard

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"bizportal/internal/features"
	"bizportal/internal/model"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// sharedFile holds the partials every view may call.
const sharedFile = "partials.html"

var viewFuncs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"date": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("Jan 2, 2006")
	},
	"datetime": func(t time.Time) string { return t.Format("Jan 2, 3:04 PM") },
	"feature":  features.Label,
	"statusClass": func(status string) string {
		return "status-" + strings.ReplaceAll(status, "_", "-")
	},
	"isAdmin":  func(senderType string) bool { return senderType == model.SenderAdmin },
	"tabTitle": func(tab string) string { return tabTitles[tab] },
	"tabHref":  tabHref,
	"join":     strings.Join,
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + strings.ReplaceAll(s[1:], "_", " ")
	},
}

// ViewCache parses each view on first use and keeps it until invalidated.
type ViewCache struct {
	fsys   fs.FS
	dir    string
	logger *zap.Logger

	mu    sync.RWMutex
	views map[string]*template.Template
}

// NewViewCache serves the embedded templates, or the files in dir when dir is set.
func NewViewCache(dir string, logger *zap.Logger) (*ViewCache, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(embeddedTemplates, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	} else {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("templates dir: %w", err)
		}
		fsys = os.DirFS(dir)
	}
	return &ViewCache{
		fsys:   fsys,
		dir:    dir,
		logger: logger,
		views:  make(map[string]*template.Template),
	}, nil
}

func (v *ViewCache) lookup(name string) (*template.Template, error) {
	v.mu.RLock()
	t, ok := v.views[name]
	v.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := template.New(name).Funcs(viewFuncs).ParseFS(v.fsys, sharedFile, name+".html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse view %s: %w", name, err)
	}

	v.mu.Lock()
	v.views[name] = t
	v.mu.Unlock()
	return t, nil
}

// Render executes the view's main template, which is named after its file.
func (v *ViewCache) Render(w io.Writer, name string, data any) error {
	t, err := v.lookup(name)
	if err != nil {
		return err
	}
	return t.ExecuteTemplate(w, name+".html", data)
}

// RenderHTML renders into a string for embedding in the page layout.
func (v *ViewCache) RenderHTML(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := v.Render(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Invalidate drops every parsed view; partials are shared so one change
// can affect all of them.
func (v *ViewCache) Invalidate() {
	v.mu.Lock()
	v.views = make(map[string]*template.Template)
	v.mu.Unlock()
}

// Cached reports whether name is parsed and cached.
func (v *ViewCache) Cached(name string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.views[name]
	return ok
}

// Watch invalidates the cache whenever a template file in the directory
// changes. It blocks until ctx is done. Embedded templates never change.
func (v *ViewCache) Watch(ctx context.Context) error {
	if v.dir == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create template watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(v.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", v.dir, err)
	}
	v.logger.Info("Watching templates", zap.String("dir", v.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".html" || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			v.logger.Info("Template changed, clearing view cache", zap.String("file", event.Name))
			v.Invalidate()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			v.logger.Warn("Template watcher error", zap.Error(err))
		}
	}
}
