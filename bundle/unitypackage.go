package bundle

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/unitygltf/unitygltf/uerr"
)

// ParseUnityPackage walks a (optionally gzipped) USTAR archive laid out the
// way Unity's legacy .unitypackage export does: one directory per asset,
// named by GUID, containing up to three files — "asset" (the serialized
// payload), "pathname" (the project-relative path as plain text) and
// "asset.meta" (import settings, ignored here).
func ParseUnityPackage(sourceName string, buf []byte, cancel uerr.CancelFunc) (*Container, error) {
	reader, err := maybeGunzip(buf)
	if err != nil {
		return nil, fmt.Errorf("unitypackage: %w", err)
	}

	type assetParts struct {
		asset    []byte
		pathname string
	}
	assets := make(map[string]*assetParts)
	var order []string

	tr := tar.NewReader(reader)
	for {
		if cancel != nil {
			if err := cancel(); err != nil {
				return nil, fmt.Errorf("unitypackage: %w", uerr.ErrCancelled)
			}
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unitypackage: tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		clean := path.Clean(hdr.Name)
		parts := strings.Split(clean, "/")
		if len(parts) < 2 {
			continue
		}
		guid := parts[0]
		file := parts[len(parts)-1]

		a, ok := assets[guid]
		if !ok {
			a = &assetParts{}
			assets[guid] = a
			order = append(order, guid)
		}

		switch file {
		case "asset":
			data := make([]byte, hdr.Size)
			if _, err := io.ReadFull(tr, data); err != nil {
				return nil, fmt.Errorf("unitypackage: guid %s: asset: %w", guid, err)
			}
			a.asset = data
		case "pathname":
			data := make([]byte, hdr.Size)
			if _, err := io.ReadFull(tr, data); err != nil {
				return nil, fmt.Errorf("unitypackage: guid %s: pathname: %w", guid, err)
			}
			a.pathname = strings.TrimRight(string(data), "\r\n")
		default:
			// asset.meta and anything else: not needed for decode.
		}
	}

	entries := make([]Entry, 0, len(order))
	for _, guid := range order {
		a := assets[guid]
		if a.asset == nil {
			continue // GUID folder with no asset payload (deletion marker, directory-only entry, etc.)
		}
		entries = append(entries, Entry{
			Path:     a.pathname,
			GUID:     guid,
			Pathname: a.pathname,
			Size:     int64(len(a.asset)),
			Payload:  a.asset,
		})
	}

	return &Container{
		SourceName: sourceName,
		Kind:       KindUnityPackageTar,
		Size:       int64(len(buf)),
		Entries:    entries,
	}, nil
}

func maybeGunzip(buf []byte) (io.Reader, error) {
	if looksLikeGzip(buf) {
		gr, err := gzip.NewReader(bytes.NewReader(buf))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return gr, nil
	}
	return bytes.NewReader(buf), nil
}
