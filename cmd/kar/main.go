// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command kar creates, lists and extracts kar archives.
//
//	kar create [-o shaders.kar] [-author name] [-wgsl] path...
//	kar list archive.kar
//	kar extract [-d dir] archive.kar [name...]
//
// With -wgsl, WGSL sources are compiled to SPIR-V and stored with
// the .spv extension, so the archive can be used as a shader source.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/koru3d/frame/assets"
	"github.com/koru3d/frame/utility/kar"
)

const archiveVersion = 1

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "create":
		err = runCreate(args)
	case "list":
		err = runList(args)
	case "extract":
		err = runExtract(args)
	default:
		usage()
	}
	if err != nil {
		log.WithError(err).Fatal("kar " + os.Args[1])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kar create|list|extract [flags] ...")
	os.Exit(2)
}

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	out := fs.String("o", "shaders.kar", "archive to write")
	author := fs.String("author", os.Getenv("USER"), "author recorded in the header")
	wgsl := fs.Bool("wgsl", false, "compile .wgsl files to SPIR-V")
	fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("no input files")
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	n, err := create(f, kar.Header{
		Author:      *author,
		DateCreated: time.Now().Unix(),
		Version:     archiveVersion,
	}, *wgsl, fs.Args())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(*out)
		return err
	}
	log.WithFields(log.Fields{"archive": *out, "bytes": n}).Info("archive written")
	return nil
}

// create writes an archive holding paths to w. Directories are added
// recursively, named relative to the directory.
func create(w io.Writer, header kar.Header, wgsl bool, paths []string) (int64, error) {
	builder, err := kar.NewBuilder(header)
	if err != nil {
		return 0, err
	}
	defer builder.Close()

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return 0, err
		}
		if !info.IsDir() {
			if err := addFile(builder, filepath.Base(root), root, wgsl); err != nil {
				return 0, err
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			return addFile(builder, filepath.ToSlash(rel), path, wgsl)
		})
		if err != nil {
			return 0, err
		}
	}
	return builder.WriteTo(w)
}

func addFile(builder *kar.Builder, name, path string, wgsl bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if wgsl && strings.HasSuffix(name, ".wgsl") {
		if data, err = assets.CompileWGSL(name, string(data)); err != nil {
			return err
		}
		name = strings.TrimSuffix(name, ".wgsl") + ".spv"
	}
	log.WithFields(log.Fields{"name": name, "size": len(data)}).Debug("adding file")
	return builder.Add(name, bytes.NewReader(data))
}

func runList(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("list takes one archive")
	}
	return list(os.Stdout, args[0])
}

func list(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	archive, err := kar.Open(f)
	if err != nil {
		return err
	}

	header := archive.Header()
	fmt.Fprintf(w, "author: %s\ncreated: %s\nversion: %d\n", header.Author,
		time.Unix(header.DateCreated, 0).UTC().Format(time.RFC3339), header.Version)
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for _, name := range archive.List() {
		entry, err := archive.Stat(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\n", entry.Name, entry.Size, entry.CompressedSize)
	}
	return tw.Flush()
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	dir := fs.String("d", ".", "directory to extract into")
	fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("extract needs an archive")
	}
	return extract(*dir, fs.Arg(0), fs.Args()[1:])
}

// extract writes the named files, or all files, of the archive at
// path into dir.
func extract(dir, path string, names []string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	archive, err := kar.Open(f)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		names = archive.List()
	}
	for _, name := range names {
		data, err := archive.ReadAll(name)
		if err != nil {
			return err
		}
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return fmt.Errorf("%s: %w", name, kar.ErrFileFormat)
		}
		target := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return err
		}
	}
	return nil
}
