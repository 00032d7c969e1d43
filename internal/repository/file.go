package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/sitemapper/internal/model"
)

// Directory names used by the File repository.
const (
	infoDir     = "SiteInfo"
	contentsDir = "SiteContents"
	jsonExt     = ".json"
)

// File stores every site as two JSON documents:
//
//	<dir>/SiteInfo/<domain>.json
//	<dir>/SiteContents/<domain>.json
//
// Writes go to a temporary file first and are renamed into place, so a
// reader never sees a half-written document.
type File struct {
	mu  sync.RWMutex
	dir string
}

// OpenFile prepares dir for use as a File repository.
func OpenFile(dir string) (*File, error) {
	for _, sub := range []string{infoDir, contentsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0750); err != nil {
			return nil, fmt.Errorf("failed to create repository directory: %w", err)
		}
	}
	return &File{dir: dir}, nil
}

func (f *File) infoPath(domain string) string {
	return filepath.Join(f.dir, infoDir, domain+jsonExt)
}

func (f *File) contentsPath(domain string) string {
	return filepath.Join(f.dir, contentsDir, domain+jsonExt)
}

// SaveSite implements Repository.
func (f *File) SaveSite(_ context.Context, site *model.Site, overwrite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	domain := site.Info.Domain
	prev, err := f.readInfo(domain)
	if err != nil {
		return err
	}
	if prev != nil && !overwrite {
		return ErrSiteExists
	}
	var prevTime int64
	if prev != nil {
		prevTime = prev.ContentsTime
	}

	info := prepareForSave(site, prevTime, time.Now())

	if site.Contents == nil {
		if err := os.Remove(f.contentsPath(domain)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to clear site contents: %w", err)
		}
	} else if err := writeJSON(f.contentsPath(domain), site.Contents); err != nil {
		return fmt.Errorf("failed to save site contents: %w", err)
	}

	if err := writeJSON(f.infoPath(domain), &info); err != nil {
		return fmt.Errorf("failed to save site info: %w", err)
	}
	return nil
}

// GetSite implements Repository.
func (f *File) GetSite(_ context.Context, domain string, includeContents bool, contentsTimestamp int64) (*model.Site, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	info, err := f.readInfo(domain)
	if err != nil || info == nil {
		return nil, err
	}

	site := &model.Site{Info: *info}
	if !wantContents(includeContents, contentsTimestamp, info.ContentsTime) {
		return site, nil
	}

	data, err := os.ReadFile(f.contentsPath(domain))
	if errors.Is(err, fs.ErrNotExist) {
		return site, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read site contents %s: %w", domain, err)
	}
	var contents model.SiteContents
	if err := json.Unmarshal(data, &contents); err != nil {
		return nil, fmt.Errorf("failed to parse site contents %s: %w", domain, err)
	}
	site.Contents = &contents
	return site, nil
}

// RemoveSite implements Repository.
func (f *File) RemoveSite(_ context.Context, domain string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.infoPath(domain))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove site: %w", err)
	}
	if err := os.Remove(f.contentsPath(domain)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove site contents: %w", err)
	}
	return nil
}

// GetDomains implements Repository.
func (f *File) GetDomains(_ context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.domains()
}

func (f *File) domains() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(f.dir, infoDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	domains := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, jsonExt) {
			continue
		}
		domains = append(domains, strings.TrimSuffix(name, jsonExt))
	}
	sort.Strings(domains)
	return domains, nil
}

// GetSites implements Repository.
func (f *File) GetSites(_ context.Context) ([]*model.SiteInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	domains, err := f.domains()
	if err != nil {
		return nil, err
	}
	infos := make([]*model.SiteInfo, 0, len(domains))
	for _, domain := range domains {
		info, err := f.readInfo(domain)
		if err != nil {
			return nil, err
		}
		if info != nil {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

// UpdateRefreshEnabled implements Repository.
func (f *File) UpdateRefreshEnabled(_ context.Context, domain string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := f.readInfo(domain)
	if err != nil {
		return err
	}
	if info == nil {
		return ErrNotFound
	}
	info.RefreshEnabled = enabled
	if err := writeJSON(f.infoPath(domain), info); err != nil {
		return fmt.Errorf("failed to save site info: %w", err)
	}
	return nil
}

// Close implements Repository. It is a no-op.
func (f *File) Close() error {
	return nil
}

// readInfo returns (nil, nil) when the domain has no record.
func (f *File) readInfo(domain string) (*model.SiteInfo, error) {
	data, err := os.ReadFile(f.infoPath(domain))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read site %s: %w", domain, err)
	}
	var info model.SiteInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse site %s: %w", domain, err)
	}
	return &info, nil
}

// writeJSON atomically replaces path with the JSON encoding of v.
func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
