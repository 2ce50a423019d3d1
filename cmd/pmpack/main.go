// pmpack assembles, inspects and verifies artifact bundles: the single-file
// deployment form of the three model blobs the dashboard loads at startup.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"predmaint/internal/artifact"
	"predmaint/internal/model"
)

func main() {
	var (
		packDir    = flag.String("pack", "", "Directory with classifier.json, rul_model.json and preprocessor.json to pack")
		outPath    = flag.String("out", "artifacts.db", "Output bundle path for -pack")
		listPath   = flag.String("list", "", "Bundle file to list")
		verifyPath = flag.String("verify", "", "Bundle file or artifact directory to load the way the server would")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch {
	case *packDir != "":
		if err := pack(*packDir, *outPath); err != nil {
			log.Fatal().Err(err).Msg("pack failed")
		}
	case *listPath != "":
		if err := list(*listPath); err != nil {
			log.Fatal().Err(err).Msg("list failed")
		}
	case *verifyPath != "":
		if err := verify(*verifyPath); err != nil {
			log.Fatal().Err(err).Msg("verify failed")
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

// pack validates the artifact set in dir and writes it into a bundle. The
// same compatibility check the server runs at startup gates the write, so a
// bundle that packs is a bundle that loads.
func pack(dir, out string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	src := artifact.NewDirSource(dir)
	if _, err := artifact.Load(ctx, src); err != nil {
		return fmt.Errorf("artifact set rejected: %w", err)
	}

	blobs := make(map[string][]byte, 3)
	for _, name := range artifact.Names() {
		data, err := src.Fetch(ctx, name)
		if err != nil {
			return err
		}
		blobs[name] = data
	}
	if err := artifact.Pack(out, blobs); err != nil {
		return err
	}
	log.Info().Str("bundle", out).Int("artifacts", len(blobs)).Msg("bundle written")
	return nil
}

func list(path string) error {
	bundle, err := artifact.OpenBundle(path)
	if err != nil {
		return err
	}
	defer bundle.Close()

	entries, err := bundle.List()
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d artifacts\n", path, len(entries))
	for _, e := range entries {
		fmt.Printf("  %-14s %6d bytes\n", e.Name, e.Size)
	}
	return nil
}

// verify loads a bundle file or artifact directory exactly as the server
// would and prints the schema summary.
func verify(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var src artifact.Source
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		src = artifact.NewDirSource(path)
	} else {
		bundle, err := artifact.OpenBundle(path)
		if err != nil {
			return err
		}
		defer bundle.Close()
		src = bundle
	}

	set, err := artifact.Load(ctx, src)
	if err != nil {
		return err
	}

	fmt.Printf("%s: OK\n", filepath.Clean(path))
	for _, name := range artifact.Names() {
		printInfo(name, set.Infos[name])
	}
	fmt.Printf("  input columns: %d, output features: %d\n",
		len(set.Preprocessor.InputColumns()), len(set.Preprocessor.FeatureNames()))
	return nil
}

func printInfo(name string, info model.Info) {
	if info.Task != "" {
		fmt.Printf("  %-14s %s (%s), %d features\n", name, info.Kind, info.Task, info.NumFeatures)
		return
	}
	fmt.Printf("  %-14s %s, %d features\n", name, info.Kind, info.NumFeatures)
}
