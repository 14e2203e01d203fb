package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	interrors "github.com/streed/synapse/internal/errors"
	"github.com/streed/synapse/internal/logger"
	"github.com/streed/synapse/internal/models"
	"gopkg.in/yaml.v3"
)

const DefaultPattern = "**/*.md"

var ErrUnclosedFrontMatter = errors.New("front matter started but no closing delimiter found")

type frontMatter struct {
	Title string  `yaml:"title"`
	Tags  tagList `yaml:"tags"`
}

// tagList accepts either a YAML sequence or a comma separated string.
type tagList []string

func (t *tagList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*t = models.ParseTags(node.Value)
		return nil
	case yaml.SequenceNode:
		var tags []string
		if err := node.Decode(&tags); err != nil {
			return err
		}
		*t = tags
		return nil
	default:
		return fmt.Errorf("tags must be a list or a comma separated string")
	}
}

// ParseMarkdown reads an optional YAML front matter block followed by the
// body. The title comes from front matter, then the first "# " heading, then
// the file name.
func ParseMarkdown(name string, data []byte) (*Document, error) {
	var meta frontMatter
	body := data

	if bytes.HasPrefix(data, []byte("---\n")) || bytes.HasPrefix(data, []byte("---\r\n")) {
		rest := data[3:]
		parts := bytes.SplitN(rest, []byte("\n---"), 2)
		if len(parts) == 1 {
			return nil, ErrUnclosedFrontMatter
		}
		if err := yaml.Unmarshal(parts[0], &meta); err != nil {
			return nil, fmt.Errorf("failed to parse front matter: %w", err)
		}
		body = parts[1]
		if i := bytes.IndexByte(body, '\n'); i >= 0 {
			body = body[i+1:]
		} else {
			body = nil
		}
	}

	content := cleanMarkdownContent(string(body))
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title, content = headingTitle(content)
	}
	if title == "" {
		base := filepath.Base(name)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return &Document{
		Title:   title,
		Content: content,
		Tags:    models.NormalizeTags(meta.Tags),
		Source:  name,
	}, nil
}

// headingTitle lifts a leading level-one heading out of content.
func headingTitle(content string) (string, string) {
	first, rest, _ := strings.Cut(content, "\n")
	if !strings.HasPrefix(first, "# ") {
		return "", content
	}
	return strings.TrimSpace(strings.TrimPrefix(first, "# ")), strings.TrimSpace(rest)
}

// FindFiles returns the files under root matching pattern, sorted.
func FindFiles(root, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, interrors.Validation(fmt.Errorf("invalid pattern %q", pattern))
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, interrors.Validation(fmt.Errorf("%s is not a directory", root))
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to match %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

type DirOptions struct {
	Pattern  string
	Tags     []string
	Progress func(done, total int)
}

type Skipped struct {
	Path string
	Err  error
}

type DirResult struct {
	Imported []*models.Note
	Skipped  []Skipped
}

// ImportDir creates one note per matching file. Files that cannot be parsed
// or fail validation are skipped; a storage or embedding failure stops the
// import.
func ImportDir(ctx context.Context, c Creator, root string, opts DirOptions) (*DirResult, error) {
	files, err := FindFiles(root, opts.Pattern)
	if err != nil {
		return nil, err
	}

	fsys := os.DirFS(root)
	result := &DirResult{}
	for i, rel := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		note, err := importFile(ctx, c, fsys, rel, opts.Tags)
		switch {
		case err == nil:
			result.Imported = append(result.Imported, note)
			logger.Debug("Imported %s as %s", rel, note.ID)
		case interrors.KindOf(err) == interrors.KindStorage, interrors.KindOf(err) == interrors.KindEmbedding:
			return result, fmt.Errorf("importing %s: %w", rel, err)
		default:
			logger.Warn("Skipping %s: %v", rel, err)
			result.Skipped = append(result.Skipped, Skipped{Path: rel, Err: err})
		}

		if opts.Progress != nil {
			opts.Progress(i+1, len(files))
		}
	}
	return result, nil
}

func importFile(ctx context.Context, c Creator, fsys fs.FS, rel string, extraTags []string) (*models.Note, error) {
	data, err := fs.ReadFile(fsys, rel)
	if err != nil {
		return nil, err
	}
	doc, err := ParseMarkdown(rel, data)
	if err != nil {
		return nil, err
	}
	return c.Create(ctx, doc.Title, doc.Content, mergeTags(doc.Tags, extraTags))
}
