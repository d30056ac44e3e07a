package tool

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSOption configures the filesystem tools.
type FSOption func(*fsConfig)

type fsConfig struct {
	root        string
	maxFileSize int64
	maxEntries  int
	batch       int
}

// WithBasePath confines every path to root. Relative paths resolve against
// it and paths that escape it are rejected.
func WithBasePath(root string) FSOption {
	return func(c *fsConfig) {
		c.root = root
	}
}

// WithMaxFileSize caps read and write sizes. Default is 10MB.
func WithMaxFileSize(bytes int64) FSOption {
	return func(c *fsConfig) {
		c.maxFileSize = bytes
	}
}

// WithMaxEntries caps how many entries ls returns. Default is 1000.
func WithMaxEntries(n int) FSOption {
	return func(c *fsConfig) {
		c.maxEntries = n
	}
}

func newFSConfig(opts []FSOption) *fsConfig {
	cfg := &fsConfig{
		maxFileSize: 10 * 1024 * 1024,
		maxEntries:  1000,
		batch:       50,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *fsConfig) resolve(path string) (string, error) {
	if path == "" {
		path = "."
	}
	if c.root == "" {
		return filepath.Clean(path), nil
	}
	root, err := filepath.Abs(c.root)
	if err != nil {
		return "", err
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, path)
	}
	full = filepath.Clean(full)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside %q", path, root)
	}
	return full, nil
}

// FS returns the ls, read, write and edit tools.
func FS(opts ...FSOption) []Tool {
	cfg := newFSConfig(opts)
	return []Tool{
		Func("ls", "List directory contents. Directories end with '/'.", cfg.ls, WithLabel("List")),
		Func("read", "Read a text file, optionally a range of lines.", cfg.read, WithLabel("Read")),
		Func("write", "Create or overwrite a file with the given content.", cfg.write, WithLabel("Write")),
		Func("edit", "Replace an exact span of text in a file. The old text must match exactly once unless replace_all is set.", cfg.edit, WithLabel("Edit")),
	}
}

type lsArgs struct {
	Path      string `json:"path,omitempty" jsonschema:"description=Directory to list (default: working directory)"`
	Recursive bool   `json:"recursive,omitempty" jsonschema:"description=Include subdirectories"`
}

// Entry describes one listed path.
type Entry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"isDir"`
	Size  int64  `json:"size,omitempty"`
}

func (c *fsConfig) ls(ctx context.Context, args lsArgs, onProgress ProgressFunc) (Result, error) {
	dir, err := c.resolve(args.Path)
	if err != nil {
		return Result{}, err
	}

	var (
		entries   []Entry
		truncated bool
	)
	add := func(rel string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(entries) >= c.maxEntries {
			truncated = true
			return fs.SkipAll
		}
		e := Entry{Path: filepath.ToSlash(rel), IsDir: d.IsDir()}
		if info, err := d.Info(); err == nil && !d.IsDir() {
			e.Size = info.Size()
		}
		entries = append(entries, e)
		if len(entries)%c.batch == 0 {
			onProgress(Update{Message: fmt.Sprintf("listed %d entries", len(entries))})
		}
		return nil
	}

	if args.Recursive {
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == dir {
				return nil
			}
			rel, _ := filepath.Rel(dir, path)
			return add(rel, d)
		})
	} else {
		var des []fs.DirEntry
		des, err = os.ReadDir(dir)
		for _, d := range des {
			if err = add(d.Name(), d); err != nil {
				break
			}
		}
	}
	if err != nil && !errors.Is(err, fs.SkipAll) {
		return Result{}, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Path
		if e.IsDir {
			lines[i] += "/"
		}
	}
	text := strings.Join(lines, "\n")
	if len(entries) == 0 {
		text = "(empty directory)"
	}
	if truncated {
		text += fmt.Sprintf("\n[truncated at %d entries]", c.maxEntries)
	}
	res := Text(text)
	res.Details = entries
	return res, nil
}

type readArgs struct {
	Path   string `json:"path" jsonschema:"description=File to read"`
	Offset int    `json:"offset,omitempty" jsonschema:"description=1-based line to start from,minimum=1"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum number of lines to return,minimum=1"`
}

func (c *fsConfig) read(ctx context.Context, args readArgs, _ ProgressFunc) (Result, error) {
	path, err := c.resolve(args.Path)
	if err != nil {
		return Result{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, err
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("%s is a directory", args.Path)
	}
	if info.Size() > c.maxFileSize {
		return Result{}, fmt.Errorf("file size %d exceeds maximum %d", info.Size(), c.maxFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	start := max(args.Offset, 1)
	var (
		sb    strings.Builder
		line  int
		taken int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), int(c.maxFileSize))
	for scanner.Scan() {
		line++
		if line < start {
			continue
		}
		if args.Limit > 0 && taken == args.Limit {
			break
		}
		if line%1000 == 0 && ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if taken > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(scanner.Text())
		taken++
	}
	if err := scanner.Err(); err != nil {
		return Result{}, err
	}
	if start > 1 && line < start {
		return Result{}, fmt.Errorf("offset %d is beyond end of file (%d lines)", start, line)
	}
	return Text(sb.String()), nil
}

type writeArgs struct {
	Path    string `json:"path" jsonschema:"description=File to write"`
	Content string `json:"content" jsonschema:"description=Full file content"`
}

func (c *fsConfig) write(_ context.Context, args writeArgs, _ ProgressFunc) (Result, error) {
	path, err := c.resolve(args.Path)
	if err != nil {
		return Result{}, err
	}
	if int64(len(args.Content)) > c.maxFileSize {
		return Result{}, fmt.Errorf("content size %d exceeds maximum %d", len(args.Content), c.maxFileSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{}, err
	}
	if err := os.WriteFile(path, []byte(args.Content), 0o644); err != nil {
		return Result{}, err
	}
	return Text(fmt.Sprintf("wrote %d bytes to %s", len(args.Content), args.Path)), nil
}

type editArgs struct {
	Path       string `json:"path" jsonschema:"description=File to edit"`
	OldText    string `json:"old_text" jsonschema:"description=Exact text to replace"`
	NewText    string `json:"new_text" jsonschema:"description=Replacement text"`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema:"description=Replace every occurrence"`
}

// EditDetails reports what an edit changed.
type EditDetails struct {
	Replacements int `json:"replacements"`
	LinesBefore  int `json:"linesBefore"`
	LinesAfter   int `json:"linesAfter"`
}

func (c *fsConfig) edit(_ context.Context, args editArgs, _ ProgressFunc) (Result, error) {
	if args.OldText == "" {
		return Result{}, errors.New("old_text must not be empty")
	}
	path, err := c.resolve(args.Path)
	if err != nil {
		return Result{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	text := string(raw)

	n := strings.Count(text, args.OldText)
	switch {
	case n == 0:
		return Result{}, fmt.Errorf("old_text not found in %s", args.Path)
	case n > 1 && !args.ReplaceAll:
		return Result{}, fmt.Errorf("old_text matches %d times in %s; add context or set replace_all", n, args.Path)
	}
	if !args.ReplaceAll {
		n = 1
	}
	updated := strings.Replace(text, args.OldText, args.NewText, n)
	if int64(len(updated)) > c.maxFileSize {
		return Result{}, fmt.Errorf("resulting file size %d exceeds maximum %d", len(updated), c.maxFileSize)
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return Result{}, err
	}

	res := Text(fmt.Sprintf("replaced %d occurrence(s) in %s", n, args.Path))
	res.Details = EditDetails{
		Replacements: n,
		LinesBefore:  strings.Count(text, "\n") + 1,
		LinesAfter:   strings.Count(updated, "\n") + 1,
	}
	return res, nil
}
