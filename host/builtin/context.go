package builtin

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/reglet-dev/reglet-bridge/host/objects"
)

// Class identifiers reported to guests.
const (
	ClassActivityThread    = "android.app.ActivityThread"
	ClassApplication       = "android.app.Application"
	ClassContext           = "android.content.Context"
	ClassApplicationInfo   = "android.content.pm.ApplicationInfo"
	ClassSharedPreferences = "android.content.SharedPreferences"
	ClassFile              = "java.io.File"
)

type config struct {
	services         map[string]any
	packageName      string
	dataRoot         string
	cacheRoot        string
	dataDir          string
	cacheDir         string
	externalCacheDir string
}

func defaultConfig() config {
	cfg := config{
		packageName: "dev.wxbridge.app",
		services:    make(map[string]any),
	}
	if dir, err := os.UserConfigDir(); err == nil {
		cfg.dataRoot = dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		cfg.cacheRoot = dir
	}
	return cfg
}

// Option configures the builtin classes.
type Option func(*config)

// WithPackageName sets the package name. Data and cache directories that
// were not set explicitly are nested under it.
func WithPackageName(name string) Option {
	return func(c *config) {
		c.packageName = name
	}
}

// WithDataDir sets the data directory as is.
func WithDataDir(dir string) Option {
	return func(c *config) {
		c.dataDir = dir
	}
}

// WithCacheDir sets the cache directory as is.
func WithCacheDir(dir string) Option {
	return func(c *config) {
		c.cacheDir = dir
	}
}

// WithExternalCacheDir sets the external cache directory. Without it the
// context reports none.
func WithExternalCacheDir(dir string) Option {
	return func(c *config) {
		c.externalCacheDir = dir
	}
}

// WithService exposes v under name through getSystemService.
func WithService(name string, v any) Option {
	return func(c *config) {
		c.services[name] = v
	}
}

// Register adds ActivityThread to r. Every session constructing it reaches the
// same application context.
func Register(r *objects.ClassRegistry, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.dataDir == "" && cfg.dataRoot != "" {
		cfg.dataDir = filepath.Join(cfg.dataRoot, cfg.packageName)
	}
	if cfg.cacheDir == "" && cfg.cacheRoot != "" {
		cfg.cacheDir = filepath.Join(cfg.cacheRoot, cfg.packageName)
	}

	thread := &ActivityThread{app: &Application{ctx: newAppContext(cfg)}}
	return r.Register(ClassActivityThread, objects.Singleton(thread))
}

// Classes returns a registry holding only the builtin classes.
func Classes(opts ...Option) (*objects.ClassRegistry, error) {
	r := objects.NewClassRegistry()
	if err := Register(r, opts...); err != nil {
		return nil, err
	}
	return r, nil
}

// ActivityThread is the entry point guests construct.
type ActivityThread struct {
	app *Application
}

func (t *ActivityThread) ClassName() string { return ClassActivityThread }

// CurrentActivityThread returns the process-wide thread, which is t itself.
func (t *ActivityThread) CurrentActivityThread() *ActivityThread { return t }

func (t *ActivityThread) GetApplication() *Application { return t.app }

// Application wraps the application context.
type Application struct {
	ctx *AppContext
}

func (a *Application) ClassName() string { return ClassApplication }

func (a *Application) GetApplicationContext() *AppContext { return a.ctx }

// AppContext answers the context queries guests make.
type AppContext struct {
	cfg config

	mu    sync.Mutex
	prefs map[string]*SharedPreferences
}

func newAppContext(cfg config) *AppContext {
	return &AppContext{cfg: cfg, prefs: make(map[string]*SharedPreferences)}
}

func (c *AppContext) ClassName() string { return ClassContext }

func (c *AppContext) GetApplicationContext() *AppContext { return c }

func (c *AppContext) GetPackageName() string { return c.cfg.packageName }

func (c *AppContext) GetDataDir() *File { return &File{Path: c.cfg.dataDir} }

func (c *AppContext) GetFilesDir() *File { return &File{Path: filepath.Join(c.cfg.dataDir, "files")} }

func (c *AppContext) GetCacheDir() *File { return &File{Path: c.cfg.cacheDir} }

// GetExternalCacheDir returns nil when no external cache is configured.
func (c *AppContext) GetExternalCacheDir() *File {
	if c.cfg.externalCacheDir == "" {
		return nil
	}
	return &File{Path: c.cfg.externalCacheDir}
}

// GetSystemService returns nil for unknown services.
func (c *AppContext) GetSystemService(name string) any {
	return c.cfg.services[name]
}

func (c *AppContext) GetApplicationInfo() *ApplicationInfo {
	return &ApplicationInfo{PackageName: c.cfg.packageName, DataDir: c.cfg.dataDir}
}

// GetSharedPreferences returns the in-memory store for name. The mode is
// accepted for compatibility and ignored.
func (c *AppContext) GetSharedPreferences(name string, _ int) *SharedPreferences {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.prefs[name]
	if !ok {
		p = &SharedPreferences{values: make(map[string]string)}
		c.prefs[name] = p
	}
	return p
}

// ApplicationInfo is a read-only description of the application.
type ApplicationInfo struct {
	PackageName string
	DataDir     string
}

func (i *ApplicationInfo) ClassName() string { return ClassApplicationInfo }

// SharedPreferences is a string key/value store kept for the process lifetime.
type SharedPreferences struct {
	mu     sync.Mutex
	values map[string]string
}

func (p *SharedPreferences) ClassName() string { return ClassSharedPreferences }

func (p *SharedPreferences) GetString(key, def string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.values[key]; ok {
		return v
	}
	return def
}

func (p *SharedPreferences) PutString(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
}

func (p *SharedPreferences) Contains(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.values[key]
	return ok
}

// File names a path on the host file system.
type File struct {
	Path string
}

func (f *File) ClassName() string { return ClassFile }

func (f *File) GetPath() string { return f.Path }

func (f *File) GetAbsolutePath() string {
	abs, err := filepath.Abs(f.Path)
	if err != nil {
		return f.Path
	}
	return abs
}

func (f *File) Exists() bool {
	_, err := os.Stat(f.Path)
	return err == nil
}

// Mkdirs creates the directory and its parents.
func (f *File) Mkdirs() bool {
	return os.MkdirAll(f.Path, 0o750) == nil
}
