// Command rcf_vector_gen regenerates the .rcf and .fp files of the RCF
// conformance vectors from their .avsc sources.
//
// Usage:
//
//	go run ./internal/tools/rcf_vector_gen [-dir testdata/conformance/rcf] [-check]
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"xdao.co/rcf/rcf"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("rcf_vector_gen", flag.ContinueOnError)
	fs.SetOutput(errOut)
	dir := fs.String("dir", filepath.Join("testdata", "conformance", "rcf"), "vector directory containing index.txt")
	check := fs.Bool("check", false, "report stale vectors instead of rewriting them")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	names, err := readIndex(filepath.Join(*dir, "index.txt"))
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	stale := 0
	for _, name := range names {
		src, err := os.ReadFile(filepath.Join(*dir, name+".avsc"))
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		form, err := rcf.NormalizeText(src)
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", name, err)
			return 1
		}
		files := map[string][]byte{
			name + ".rcf": form,
			name + ".fp":  []byte(rcf.Fingerprint(string(form)).String() + "\n"),
		}
		for _, file := range []string{name + ".rcf", name + ".fp"} {
			path := filepath.Join(*dir, file)
			want := files[file]
			if *check {
				got, err := os.ReadFile(path)
				if err != nil || !bytes.Equal(got, want) {
					fmt.Fprintf(out, "stale %s\n", file)
					stale++
				}
				continue
			}
			if err := os.WriteFile(path, want, 0o644); err != nil {
				fmt.Fprintln(errOut, err)
				return 1
			}
		}
	}
	if stale > 0 {
		return 1
	}
	fmt.Fprintf(out, "%d vectors ok\n", len(names))
	return 0
}

func readIndex(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, l := range strings.Split(string(b), "\n") {
		if l = strings.TrimSpace(l); l != "" && !strings.HasPrefix(l, "#") {
			names = append(names, l)
		}
	}
	return names, nil
}
