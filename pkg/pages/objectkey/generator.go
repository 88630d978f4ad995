// Package objectkey builds storage keys for image files.
package objectkey

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Generator creates the storage key of an image file.
type Generator interface {
	GenerateKey(imageID uuid.UUID, meta *KeyMetadata) string
}

// KeyMetadata contains information that influences key generation
type KeyMetadata struct {
	FileName string
	MimeType string
	// Collection groups keys, e.g. "original" or a rendition name.
	Collection string
}

// FlatGenerator stores every image under images/{id}/{file}.
type FlatGenerator struct {
	Prefix string
}

// NewFlatGenerator returns a generator rooted at "images".
func NewFlatGenerator() *FlatGenerator {
	return &FlatGenerator{Prefix: "images"}
}

func (g *FlatGenerator) GenerateKey(imageID uuid.UUID, meta *KeyMetadata) string {
	if meta != nil && meta.FileName != "" {
		return fmt.Sprintf("%s/%s/%s", g.Prefix, imageID, sanitizeFilename(meta.FileName))
	}
	return fmt.Sprintf("%s/%s", g.Prefix, imageID)
}

// ShardedGenerator spreads keys over directories named after the first
// characters of the image id, the way git stores objects:
//
//	images/original/ab/cd1234ef5678..._file.jpg
type ShardedGenerator struct {
	Prefix string
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

// NewShardedGenerator returns a generator with two character shards.
func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{Prefix: "images", ShardLength: 2}
}

func (g *ShardedGenerator) GenerateKey(imageID uuid.UUID, meta *KeyMetadata) string {
	id := strings.ReplaceAll(imageID.String(), "-", "")
	n := g.ShardLength
	if n <= 0 || n >= len(id) {
		n = 2
	}
	shard, rest := id[:n], id[n:]

	collection := "original"
	filename := rest
	if meta != nil {
		if meta.Collection != "" {
			collection = sanitizePathComponent(meta.Collection)
		}
		if meta.FileName != "" {
			filename = rest + "_" + sanitizeFilename(meta.FileName)
		}
	}
	return path.Join(g.Prefix, collection, shard, filename)
}

// FuncGenerator adapts a function to Generator.
type FuncGenerator func(imageID uuid.UUID, meta *KeyMetadata) string

func (f FuncGenerator) GenerateKey(imageID uuid.UUID, meta *KeyMetadata) string {
	return f(imageID, meta)
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
)

func sanitizeFilename(name string) string {
	return filenameReplacer.Replace(name)
}

func sanitizePathComponent(s string) string {
	s = strings.ToLower(sanitizeFilename(s))
	s = strings.Trim(s, "._")
	if s == "" {
		return "default"
	}
	return s
}
