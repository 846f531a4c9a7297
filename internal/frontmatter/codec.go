// Package frontmatter encodes and decodes the YAML metadata block at
// the head of an archived Markdown note.
package frontmatter

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	fm "github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/starford/othala/internal/models"
)

// Delimiter is the line that fences the YAML block.
const Delimiter = "---"

// Encode serializes metadata into a ----delimited YAML block. Keys keep
// a fixed canonical order (required fields first, extras sorted last)
// so encoding the same metadata twice yields identical bytes. Unicode
// round-trips unescaped.
func Encode(meta models.Metadata) (string, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	addString := func(key, val string) {
		if val == "" {
			return
		}
		root.Content = append(root.Content,
			scalarNode(key),
			scalarNode(val))
	}
	addList := func(key string, vals []string) error {
		if len(vals) == 0 {
			return nil
		}
		seq := &yaml.Node{}
		if err := seq.Encode(vals); err != nil {
			return fmt.Errorf("frontmatter: encode %s: %w", key, err)
		}
		root.Content = append(root.Content, scalarNode(key), seq)
		return nil
	}

	addString("title", meta.Title)
	addString("date", meta.Date)
	if err := addList("tags", meta.Tags); err != nil {
		return "", err
	}
	addString("author", meta.Author)
	addString("source", meta.Source)
	addString("type", meta.Type)
	addString("status", meta.Status)
	addString("language", meta.Language)
	addString("summary", meta.Summary)
	addString("uid", meta.UID)
	if err := addList("linked_files", meta.LinkedFiles); err != nil {
		return "", err
	}

	extraKeys := make([]string, 0, len(meta.Extra))
	for k := range meta.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		val := &yaml.Node{}
		if err := val.Encode(meta.Extra[k]); err != nil {
			return "", fmt.Errorf("frontmatter: encode %s: %w", k, err)
		}
		root.Content = append(root.Content, scalarNode(k), val)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return "", fmt.Errorf("frontmatter: encode block: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("frontmatter: close encoder: %w", err)
	}

	block := strings.TrimRight(buf.String(), "\n")
	return Delimiter + "\n" + block + "\n" + Delimiter, nil
}

func scalarNode(v string) *yaml.Node {
	n := &yaml.Node{}
	_ = n.Encode(v)
	return n
}

// Decode splits a leading YAML front-matter block out of a Markdown
// document. Content without a block, or with a block that fails to
// parse, comes back whole as the body with empty metadata; this never
// errors on malformed input.
func Decode(content string) (models.Metadata, string) {
	raw := map[string]any{}
	rest, err := fm.Parse(strings.NewReader(content), &raw)
	if err != nil {
		return models.Metadata{}, content
	}
	body := strings.TrimLeft(string(rest), "\n\r")
	return models.MetadataFromMap(raw), body
}

// Compose assembles the final archived document: the encoded block, a
// blank line, then the trimmed original body.
func Compose(meta models.Metadata, body string) (string, error) {
	block, err := Encode(meta)
	if err != nil {
		return "", err
	}
	return block + "\n\n" + strings.TrimSpace(body), nil
}
