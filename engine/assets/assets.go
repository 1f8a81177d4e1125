package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/assets/loaders"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"golang.org/x/sync/errgroup"
)

var (
	ErrAssetNotFound = errors.New("asset not found")
	ErrNoLoader      = errors.New("no loader registered")
	ErrClosed        = errors.New("asset manager closed")
)

type AssetInfo struct {
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

/**
 * @brief Indexes the files of an asset directory, loads them through the
 * loader registered for their type and, when watching, reports changed files
 * as EVENT_CODE_ASSET_CHANGED events. Paths are slash separated and relative
 * to the asset root.
 */
type AssetManager struct {
	root string
	fsys fs.FS

	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader
	mutex   sync.RWMutex

	events *core.EventBus

	// changed paths waiting for the next Update, in arrival order
	pending   []string
	isPending map[string]struct{}
	pendingMu sync.Mutex

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	isClosed bool

	log *log.Logger
}

// NewAssetManager indexes the directory root.
func NewAssetManager(root string, events *core.EventBus) (*AssetManager, error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("asset root %s is not a directory", root)
	}
	am, err := NewAssetManagerFS(os.DirFS(root), events)
	if err != nil {
		return nil, err
	}
	am.root = root
	return am, nil
}

// NewAssetManagerFS indexes fsys. Managers over an fs.FS cannot Watch.
func NewAssetManagerFS(fsys fs.FS, events *core.EventBus) (*AssetManager, error) {
	am := &AssetManager{
		fsys:      fsys,
		assets:    make(map[string]AssetInfo),
		loaders:   make(map[metadata.ResourceType]Loader),
		events:    events,
		isPending: make(map[string]struct{}),
		done:      make(chan struct{}),
		log:       core.Logger().With("system", "assets"),
	}
	am.RegisterLoader(metadata.ResourceTypeText, &loaders.BinaryLoader{Type: metadata.ResourceTypeText})
	am.RegisterLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{Type: metadata.ResourceTypeBinary})
	am.RegisterLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.RegisterLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.RegisterLoader(metadata.ResourceTypeMaterial, &loaders.MaterialLoader{})

	if err := am.Rescan(); err != nil {
		return nil, err
	}
	return am, nil
}

// Rescan rebuilds the index from the file tree.
func (am *AssetManager) Rescan() error {
	index := make(map[string]AssetInfo)
	err := fs.WalkDir(am.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		index[p] = AssetInfo{Path: p, Type: DetermineAssetType(p)}
		return nil
	})
	if err != nil {
		return err
	}
	am.mutex.Lock()
	am.assets = index
	am.mutex.Unlock()
	am.log.Debug("indexed assets", "count", len(index))
	return nil
}

// RegisterLoader sets the loader of a resource type, replacing any previous one.
func (am *AssetManager) RegisterLoader(assetType metadata.ResourceType, loader Loader) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.loaders[assetType] = loader
}

// FS is the file tree the manager serves.
func (am *AssetManager) FS() fs.FS {
	return am.fsys
}

func (am *AssetManager) Exists(p string) bool {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	_, ok := am.assets[p]
	return ok
}

func (am *AssetManager) Info(p string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[p]
	return info, ok
}

// List returns the indexed paths of a type, sorted.
func (am *AssetManager) List(assetType metadata.ResourceType) []string {
	am.mutex.RLock()
	var out []string
	for p, info := range am.assets {
		if info.Type == assetType {
			out = append(out, p)
		}
	}
	am.mutex.RUnlock()
	sort.Strings(out)
	return out
}

// ReadFile returns the raw content of an indexed file.
func (am *AssetManager) ReadFile(p string) ([]byte, error) {
	if !am.Exists(p) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, p)
	}
	return fs.ReadFile(am.fsys, p)
}

// Load reads an asset with the loader of its indexed type.
func (am *AssetManager) Load(p string, params interface{}) (*metadata.Resource, error) {
	am.mutex.RLock()
	info, ok := am.assets[p]
	am.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, p)
	}
	return am.LoadAs(p, info.Type, params)
}

// LoadAs reads an asset with the loader of an explicit type.
func (am *AssetManager) LoadAs(p string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	am.mutex.RLock()
	info, ok := am.assets[p]
	loader, hasLoader := am.loaders[assetType]
	am.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, p)
	}
	if !hasLoader {
		return nil, fmt.Errorf("%w: %s for %s", ErrNoLoader, assetType, p)
	}

	res, err := loader.Load(am.fsys, p, params)
	if err != nil {
		return nil, err
	}
	res.Handle = uuid.NewString()
	res.Type = assetType

	info.LastLoaded = time.Now()
	am.mutex.Lock()
	am.assets[p] = info
	am.mutex.Unlock()
	return res, nil
}

// Unload hands the resource back to its loader.
func (am *AssetManager) Unload(res *metadata.Resource) error {
	if res == nil {
		return nil
	}
	am.mutex.RLock()
	loader, ok := am.loaders[res.Type]
	am.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoLoader, res.Type)
	}
	return loader.Unload(res)
}

// Preload loads paths concurrently. Results keep the order of paths; the
// first failure cancels the remaining loads.
func (am *AssetManager) Preload(ctx context.Context, paths []string) ([]*metadata.Resource, error) {
	out := make([]*metadata.Resource, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := am.Load(p, nil)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Watch starts reporting changes below the asset root.
func (am *AssetManager) Watch() error {
	if am.isClosed {
		return ErrClosed
	}
	if am.root == "" {
		return fmt.Errorf("watch: asset manager has no directory")
	}
	if am.fsnotify != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = w
	if err := am.watchRecursive(am.root); err != nil {
		w.Close()
		am.fsnotify = nil
		return err
	}
	am.wg.Add(1)
	go am.start()
	return nil
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleFileEvent(e)
		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			am.log.Error("watcher", "err", err)
		case <-am.done:
			return
		}
	}
}

// watchRecursive adds every directory under dir to the watch list.
func (am *AssetManager) watchRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return am.fsnotify.Add(p)
		}
		return nil
	})
}

func (am *AssetManager) relative(name string) (string, bool) {
	rel, err := filepath.Rel(am.root, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (am *AssetManager) handleFileEvent(e fsnotify.Event) {
	rel, ok := am.relative(e.Name)
	if !ok {
		return
	}
	if e.Has(fsnotify.Create) {
		if st, err := os.Stat(e.Name); err == nil && st.IsDir() {
			if err := am.watchRecursive(e.Name); err != nil {
				am.log.Warn("watch directory", "path", rel, "err", err)
			}
			return
		}
	}
	switch {
	case e.Has(fsnotify.Create) || e.Has(fsnotify.Write):
		am.mutex.Lock()
		info := am.assets[rel]
		info.Path = rel
		info.Type = DetermineAssetType(rel)
		am.assets[rel] = info
		am.mutex.Unlock()
	case e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename):
		am.mutex.Lock()
		delete(am.assets, rel)
		am.mutex.Unlock()
	default:
		return
	}
	am.markChanged(rel)
}

func (am *AssetManager) markChanged(rel string) {
	am.pendingMu.Lock()
	defer am.pendingMu.Unlock()
	if _, ok := am.isPending[rel]; ok {
		return
	}
	am.isPending[rel] = struct{}{}
	am.pending = append(am.pending, rel)
}

// Update fires one EVENT_CODE_ASSET_CHANGED per path changed since the last
// call. It runs on the caller's goroutine so listeners may touch GPU objects.
func (am *AssetManager) Update() int {
	am.pendingMu.Lock()
	changed := am.pending
	am.pending = nil
	clear(am.isPending)
	am.pendingMu.Unlock()

	for _, p := range changed {
		am.log.Debug("asset changed", "path", p)
		if am.events != nil {
			ctx := core.EventContext{}
			ctx.Data.S = p
			am.events.Fire(core.EVENT_CODE_ASSET_CHANGED, am, ctx)
		}
	}
	return len(changed)
}

func (am *AssetManager) Close() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	close(am.done)
	var err error
	if am.fsnotify != nil {
		err = am.fsnotify.Close()
	}
	am.wg.Wait()
	return err
}

// DetermineAssetType classifies a file by its name.
func DetermineAssetType(p string) metadata.ResourceType {
	base := strings.ToLower(path.Base(p))
	switch {
	case strings.HasSuffix(base, ".material.yaml"), strings.HasSuffix(base, ".material.yml"):
		return metadata.ResourceTypeMaterial
	case strings.HasSuffix(base, ".glsl"), strings.HasSuffix(base, ".spv"):
		return metadata.ResourceTypeShader
	}
	switch path.Ext(base) {
	case ".png", ".tga", ".bmp", ".tif", ".tiff":
		return metadata.ResourceTypeImage
	case ".txt", ".toml", ".yaml", ".yml", ".json":
		return metadata.ResourceTypeText
	}
	return metadata.ResourceTypeBinary
}
