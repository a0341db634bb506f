// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command unmunge converts a ucfb-format asset archive into readable,
// editable files: textures, ODF/config text, world/planning/path text,
// and model meshes (legacy .msh or glTF). It also offers -mode=explode/
// assemble, a lossless raw-chunk-tree round trip independent of any
// tag-specific handler, for inspecting or hand-patching a container that
// has no (or a broken) handler.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"

	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
	"github.com/ucfb-tools/unmunge/internal/explode"
	"github.com/ucfb-tools/unmunge/internal/filesaver"
	"github.com/ucfb-tools/unmunge/internal/gltf"
	"github.com/ucfb-tools/unmunge/internal/handlers"
	"github.com/ucfb-tools/unmunge/internal/ledger"
	"github.com/ucfb-tools/unmunge/internal/meshfmt"
	"github.com/ucfb-tools/unmunge/internal/model"
	"github.com/ucfb-tools/unmunge/internal/options"
	"github.com/ucfb-tools/unmunge/internal/progress"
	"github.com/ucfb-tools/unmunge/internal/synclog"
)

func main() {
	opts, err := options.Parse(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	switch opts.Mode {
	case options.ModeExplode:
		runExplode(opts)
	case options.ModeAssemble:
		runAssemble(opts)
	default:
		runExtract(opts)
	}
}

func runExplode(opts options.Options) {
	raw, err := os.ReadFile(opts.Input)
	if err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		log.Fatal(err)
	}
	if err := explode.ExplodeRoot(raw, opts.Output); err != nil {
		log.Fatal(err)
	}
}

func runAssemble(opts options.Options) {
	raw, err := explode.Assemble(opts.Input)
	if err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(opts.Output, raw, 0o644); err != nil {
		log.Fatal(err)
	}
}

// runExtract drives the full decode pipeline: open the root chunk, fan
// dispatch out over it with one dispatch.Group, then hand every
// integrated model to the requested mesh writer. Per-task and per-model
// failures are logged (and recorded to the ledger, if configured) but
// never change the process exit code — only a root chunk that can't be
// opened at all does that.
func runExtract(opts options.Options) {
	started := time.Now()

	raw, err := os.ReadFile(opts.Input)
	if err != nil {
		log.Fatal(err)
	}
	root, err := chunk.Open(raw)
	if err != nil {
		log.Fatal(err)
	}

	logger := synclog.New(os.Stdout, "", log.LstdFlags)

	files := newFilesystem(opts)
	led := newLedger(opts)

	var monitor *progress.Monitor
	if opts.ProgressPort > 0 {
		monitor = progress.NewMonitor()
		go monitor.Run()
		go func() {
			addr := fmt.Sprintf(":%d", opts.ProgressPort)
			if err := progress.Serve(addr, 256, monitor); err != nil {
				logger.Printf("progress: %v", err)
			}
		}()
	}

	builder := model.NewBuilder()
	env := &handlers.Env{
		Builder:     builder,
		Files:       files,
		Logger:      logger,
		ImageFormat: opts.ImageFormat,
	}

	table := handlers.BuildTable()
	ctx := &dispatch.Context{Platform: opts.Platform, GameVersion: opts.Version, Env: env}
	group := dispatch.NewGroup()

	rootHandler := table.Lookup(root.Tag(), ctx.Platform, ctx.GameVersion)
	group.Spawn(root.Tag(), root.Size(), func() error {
		return rootHandler(ctx, root, group)
	})

	chunkFailures := group.Wait()
	for _, f := range chunkFailures {
		logger.Println(f.String())
		if monitor != nil {
			monitor.Broadcast(progress.Event{Tag: f.Tag.String(), Size: f.Size, Failed: true, Message: f.Err.Error()})
		}
		if led != nil {
			led.RecordFailure(ledger.FailureRecord{Input: opts.Input, Model: f.Tag.String(), Err: f.Err.Error()})
		}
	}

	saveFailures := builder.SaveAll(opts.Discard, func(scene *model.Scene) error {
		return saveScene(scene, opts, files)
	})
	for _, f := range saveFailures {
		logger.Println(f.Error())
		if led != nil {
			led.RecordFailure(ledger.FailureRecord{Input: opts.Input, Model: f.Model, Err: f.Err.Error()})
		}
	}

	if led != nil {
		if err := led.RecordRun(ledger.RunRecord{
			Input:     opts.Input,
			StartedAt: started,
			Models:    len(builder.Names()),
			Failures:  len(chunkFailures) + len(saveFailures),
		}); err != nil {
			logger.Printf("ledger: record run: %v", err)
		}
	}
}

func saveScene(scene *model.Scene, opts options.Options, files filesaver.Filesystem) error {
	if opts.ModelFormat == options.ModelFormatGltf {
		data, err := gltf.WriteScene(scene)
		if err != nil {
			return err
		}
		return files.SaveFile("models/"+scene.Name+".glb", data)
	}

	data, err := meshfmt.WriteScene(scene, opts.MeshOptions())
	if err != nil {
		return err
	}
	if err := files.SaveFile("models/"+scene.Name+".msh", data); err != nil {
		return err
	}

	optionFile := filepath.Join(opts.Output, "models", scene.Name+".msh.options.csv")
	if err := os.MkdirAll(filepath.Dir(optionFile), 0o755); err != nil {
		return err
	}
	return meshfmt.WriteOptionFile(optionFile, scene.Name, opts.MeshOptions())
}

func newFilesystem(opts options.Options) filesaver.Filesystem {
	if opts.S3Bucket == "" {
		return filesaver.NewLocalFilesystem(opts.Output)
	}
	sess := session.Must(session.NewSession())
	return filesaver.NewS3Filesystem(sess, opts.S3Bucket)
}

func newLedger(opts options.Options) ledger.Ledger {
	if opts.DynamoTable == "" {
		return nil
	}
	sess := session.Must(session.NewSession())
	return ledger.NewDynamoLedger(sess, opts.DynamoTable)
}
