package icongen

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
)

const (
	iconDirSize   = 6
	iconEntrySize = 16
	iconTypeIcon  = 1
)

type iconDir struct {
	Reserved uint16
	Type     uint16
	Count    uint16
}

type iconDirEntry struct {
	Width      uint8 // 0 means 256
	Height     uint8 // 0 means 256
	ColorCount uint8
	Reserved   uint8
	Planes     uint16
	BitCount   uint16
	BytesInRes uint32
	Offset     uint32
}

// Entry is one PNG-compressed image of a container.
type Entry struct {
	Width  int
	Height int
	Data   []byte
}

// Container is an ICO file under construction. Entries keep the order they
// were added in.
type Container struct {
	entries []Entry
}

// NewContainer returns an empty container.
func NewContainer() *Container {
	return &Container{}
}

// Entries returns the encoded entries in order.
func (c *Container) Entries() []Entry {
	return c.entries
}

// AddEntry PNG-encodes img and appends it.
func (c *Container) AddEntry(img image.Image) error {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 || b.Dx() > MaxIconSize || b.Dy() > MaxIconSize {
		return fmt.Errorf("%w: unsupported size %dx%d", ErrEncode, b.Dx(), b.Dy())
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	c.entries = append(c.entries, Entry{Width: b.Dx(), Height: b.Dy(), Data: buf.Bytes()})
	return nil
}

// WriteTo writes the ICONDIR header, the directory entries and the image
// data to w.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	n := len(c.entries)
	binary.Write(&buf, binary.LittleEndian, iconDir{Type: iconTypeIcon, Count: uint16(n)})

	offset := uint32(iconDirSize + n*iconEntrySize)
	for _, e := range c.entries {
		binary.Write(&buf, binary.LittleEndian, iconDirEntry{
			Width:      dimByte(e.Width),
			Height:     dimByte(e.Height),
			Planes:     1,
			BitCount:   32,
			BytesInRes: uint32(len(e.Data)),
			Offset:     offset,
		})
		offset += uint32(len(e.Data))
	}
	for _, e := range c.entries {
		buf.Write(e.Data)
	}
	return buf.WriteTo(w)
}

// Write replaces the file at path with the container. The data goes to a
// temporary file first, so readers never see a partial container.
func (c *Container) Write(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := c.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write container: %w", err)
	}
	// CreateTemp opens the file 0600 and the rename keeps that.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("write container: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write container: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write container: %w", err)
	}
	return nil
}

func dimByte(v int) uint8 {
	if v >= MaxIconSize {
		return 0
	}
	return uint8(v)
}

func dimInt(v uint8) int {
	if v == 0 {
		return MaxIconSize
	}
	return int(v)
}

// DecodeContainer reads an ICO file and checks that every entry decodes to
// an image of the size its directory entry declares.
func DecodeContainer(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var dir iconDir
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &dir); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInvalidContainer, err)
	}
	if dir.Reserved != 0 || dir.Type != iconTypeIcon {
		return nil, fmt.Errorf("%w: not an icon file", ErrInvalidContainer)
	}

	dirEntries := make([]iconDirEntry, dir.Count)
	rd := bytes.NewReader(data[iconDirSize:])
	if err := binary.Read(rd, binary.LittleEndian, dirEntries); err != nil {
		return nil, fmt.Errorf("%w: directory: %v", ErrInvalidContainer, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for i, de := range dirEntries {
		end := uint64(de.Offset) + uint64(de.BytesInRes)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("%w: entry %d out of bounds", ErrInvalidContainer, i)
		}
		blob := data[de.Offset:end]
		img, err := png.Decode(bytes.NewReader(blob))
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidContainer, i, err)
		}
		w, h := dimInt(de.Width), dimInt(de.Height)
		if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
			return nil, fmt.Errorf("%w: entry %d is %dx%d, directory says %dx%d",
				ErrInvalidContainer, i, b.Dx(), b.Dy(), w, h)
		}
		entries = append(entries, Entry{Width: w, Height: h, Data: blob})
	}
	return entries, nil
}

// VerifyContainer reports whether the file at path is a readable container
// holding exactly one entry for each of Sizes.
func VerifyContainer(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := DecodeContainer(f)
	if err != nil {
		return err
	}
	if len(entries) != len(Sizes) {
		return fmt.Errorf("%w: %d entries, want %d", ErrInvalidContainer, len(entries), len(Sizes))
	}
	for i, size := range Sizes {
		if entries[i].Width != size || entries[i].Height != size {
			return fmt.Errorf("%w: entry %d is %dx%d, want %dx%d",
				ErrInvalidContainer, i, entries[i].Width, entries[i].Height, size, size)
		}
	}
	return nil
}

// GenerateContainer renders data at every size in Sizes and writes the
// resulting container to path.
func GenerateContainer(data []byte, path string, opts RasterOptions) error {
	src, err := ParseSource(data, opts)
	if err != nil {
		return err
	}
	c := NewContainer()
	for _, size := range Sizes {
		img, err := src.RenderAt(size)
		if err != nil {
			return err
		}
		if err := c.AddEntry(img); err != nil {
			return fmt.Errorf("size %d: %w", size, err)
		}
	}
	return c.Write(path)
}
