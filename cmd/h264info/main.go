// Command h264info summarizes a raw H.264 Annex B stream, such as one written
// by mediastreamd --out=file.h264.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	flag "github.com/spf13/pflag"

	"github.com/lanikai/mediastream/internal/logging"
	"github.com/lanikai/mediastream/internal/media/h264"
)

var log = logging.DefaultLogger.WithTag("h264info")

var flagVerbose = flag.BoolP("verbose", "V", false, "Print every NAL unit")

var typeNames = map[byte]string{
	h264.NALUTypeSlice: "non-IDR slice",
	h264.NALUTypeIDR:   "IDR slice",
	h264.NALUTypeSEI:   "SEI",
	h264.NALUTypeSPS:   "SPS",
	h264.NALUTypePPS:   "PPS",
	h264.NALUTypeAUD:   "access unit delimiter",
}

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: h264info [-V] FILE")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	in := os.Stdin
	if name := flag.Arg(0); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		in = f
	}

	if err := summarize(in, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func summarize(in io.Reader, out io.Writer) error {
	counts := make(map[byte]int)
	var total int64
	r := h264.NewReader(in)
	for i := 0; ; i++ {
		nalu, err := r.ReadNALU()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}
		if len(nalu) == 0 {
			continue
		}

		t := nalu.Type()
		counts[t]++
		total += int64(len(nalu))
		if *flagVerbose {
			fmt.Fprintf(out, "%6d  type %2d  nri %d  %7d bytes\n", i, t, nalu.NRI(), len(nalu))
		}
		if t == h264.NALUTypeSPS && counts[t] == 1 {
			info, err := h264.ParseSPS(nalu)
			if err != nil {
				log.Warn("Bad SPS: %v", err)
				continue
			}
			fmt.Fprintf(out, "profile %d, level %d, %dx%d\n", info.Profile, info.Level, info.Width, info.Height)
		}
	}

	types := make([]int, 0, len(counts))
	for t := range counts {
		types = append(types, int(t))
	}
	sort.Ints(types)
	for _, t := range types {
		name, ok := typeNames[byte(t)]
		if !ok {
			name = fmt.Sprintf("type %d", t)
		}
		fmt.Fprintf(out, "%-22s %d\n", name, counts[byte(t)])
	}
	fmt.Fprintf(out, "%-22s %d\n", "bytes", total)
	return nil
}
