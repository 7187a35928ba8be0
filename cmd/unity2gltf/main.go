// unity2gltf decodes a Unity asset bundle, SerializedFile or .unitypackage
// into a glTF-2.0 binary (.glb).
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/unitygltf/unitygltf/semantic"
	"github.com/unitygltf/unitygltf/ulog"
	"github.com/unitygltf/unitygltf/unityassets"
)

// Command line options
var (
	oStrictPadding  = flag.Bool("strict-padding", false, "reject non-zero alignment pad bytes instead of skipping them")
	oNoSkinning     = flag.Bool("no-skinning", false, "do not apply bind-pose skin matrices to mesh vertices")
	oMaxStringBytes = flag.Int("max-string-bytes", 0, "override the default 1 MiB string-length cap (0 keeps the default)")
	oVerbose        = flag.Bool("verbose", false, "emit DEBUG-level diagnostics in addition to warnings")
)

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 2 {
		usage()
		os.Exit(2)
	}
	input, output := flag.Arg(0), flag.Arg(1)

	level := ulog.WARN
	if *oVerbose {
		level = ulog.DEBUG
	}
	log := ulog.New("unity2gltf", level)
	defer log.Sync()

	if err := run(log, input, output); err != nil {
		log.Error("decode failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(log *ulog.Logger, input, output string) error {
	buf, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("unity2gltf: read %q: %w", input, err)
	}

	opts := unityassets.DecodeOptions{
		StrictPadding:  *oStrictPadding,
		EnableSkinning: !*oNoSkinning,
		MaxStringBytes: *oMaxStringBytes,
		WarningsSink:   func(w semantic.Warning) { logWarning(log, w) },
	}

	result, err := unityassets.Decode(input, buf, opts)
	if err != nil {
		return fmt.Errorf("unity2gltf: decode: %w", err)
	}
	log.Info("decoded",
		zap.Int("gameObjects", len(result.Context.GameObjects)),
		zap.Int("meshes", len(result.Context.Meshes)),
		zap.Int("warnings", len(result.Context.Warnings)),
	)

	glb, err := unityassets.ToGLB(result, unityassets.ExportOptions{
		WarningsSink: func(w semantic.Warning) { logWarning(log, w) },
	})
	if err != nil {
		return fmt.Errorf("unity2gltf: export: %w", err)
	}

	if err := os.WriteFile(output, glb, 0644); err != nil {
		return fmt.Errorf("unity2gltf: write %q: %w", output, err)
	}
	log.Info("wrote glb", zap.String("path", output), zap.Int("bytes", len(glb)))
	return nil
}

func logWarning(log *ulog.Logger, w semantic.Warning) {
	log.Warn(w.Message,
		zap.String("stage", w.Stage),
		zap.Int32("classID", w.ClassID),
		zap.Int64("pathID", w.PathID),
	)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: unity2gltf [flags] <input> <output.glb>\n\n")
	flag.PrintDefaults()
}
