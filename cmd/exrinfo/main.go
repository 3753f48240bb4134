// Command exrinfo is a thin, read-only OpenEXR inspector: it opens a
// file, prints each part's header, and optionally decodes every chunk
// as a self-test.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/coreexr/go-openexr/chunkio"
	"github.com/coreexr/go-openexr/exr"
	"github.com/coreexr/go-openexr/header"

	_ "github.com/coreexr/go-openexr/compress/b44"
	_ "github.com/coreexr/go-openexr/compress/piz"
	_ "github.com/coreexr/go-openexr/compress/pxr24"
	_ "github.com/coreexr/go-openexr/compress/rle"
	_ "github.com/coreexr/go-openexr/compress/zip"
)

func main() {
	selfTest := flag.Bool("selftest", false, "decode every chunk of every part and report errors")
	parallel := flag.Bool("parallel", false, "decode with the parallel worker pool during -selftest")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: exrinfo [-selftest] [-parallel] FILE")
		os.Exit(2)
	}
	path := flag.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	file, err := exr.Open(f, path)
	if err != nil {
		log.Fatalf("%s: %v", path, err)
	}

	vf := file.VersionField()
	fmt.Printf("%s: version %d, multipart=%v deep=%v longNames=%v\n", path, vf.Version, vf.Multipart, vf.DeepData, vf.LongNames)
	fmt.Printf("%d part(s)\n", file.PartCount())

	for i := 0; i < file.PartCount(); i++ {
		p := file.Part(i)
		describePart(i, p)
		if *selfTest {
			if err := decodePart(file, i, p, *parallel); err != nil {
				log.Fatalf("part %d self-test: %v", i, err)
			}
			fmt.Printf("  self-test ok\n")
		}
	}
}

func describePart(i int, p *header.Part) {
	name := p.Name()
	if name == "" {
		name = fmt.Sprintf("part %d", i)
	}
	fmt.Printf("[%d] %s\n", i, name)

	dw, err := p.DataWindow()
	if err != nil {
		fmt.Printf("  dataWindow: error: %v\n", err)
	} else {
		fmt.Printf("  dataWindow: %dx%d\n", dw.Width(), dw.Height())
	}

	c, err := p.Compression()
	if err != nil {
		fmt.Printf("  compression: error: %v\n", err)
	} else {
		fmt.Printf("  compression: %v\n", c)
	}

	channels, err := p.Channels()
	if err != nil {
		fmt.Printf("  channels: error: %v\n", err)
	} else {
		names := make([]string, len(channels))
		for j, ch := range channels {
			names[j] = ch.Name
		}
		fmt.Printf("  channels: %v\n", names)
	}

	n, err := p.ChunkCount()
	if err != nil {
		fmt.Printf("  chunkCount: error: %v\n", err)
	} else {
		fmt.Printf("  chunkCount: %d\n", n)
	}
}

func decodePart(file *exr.Reader, i int, p *header.Part, parallel bool) error {
	if p.Type().IsDeep() {
		_, err := file.ReadDeepPart(i)
		return err
	}
	_, err := file.ReadPart(i, chunkio.Options{Parallel: parallel})
	return err
}
