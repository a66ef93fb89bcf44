package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagInput            string
	flagFormat           string
	flagWidth            int
	flagHeight           int
	flagFrameRate        float64
	flagBitrate          int
	flagCodec            string
	flagKeyFrameInterval int
	flagOutputs          []string
	flagListen           string
	flagLogLevel         string
	flagHorizontalFlip   bool
	flagVerticalFlip     bool
	flagHelp             bool
	flagVersion          bool
)

func init() {
	flag.StringVarP(&flagInput, "input", "i", "/dev/video0", "Video source")
	flag.StringVarP(&flagFormat, "format", "f", "", "Capture pixel format")
	flag.IntVarP(&flagWidth, "width", "x", 640, "Video width")
	flag.IntVarP(&flagHeight, "height", "y", 480, "Video height")
	flag.Float64VarP(&flagFrameRate, "framerate", "r", 30, "Frames per second")
	flag.IntVarP(&flagBitrate, "bitrate", "b", 1000, "Video bitrate, in kbit/s")
	flag.StringVarP(&flagCodec, "codec", "c", "h264", "Output codec")
	flag.IntVarP(&flagKeyFrameInterval, "keyframe-interval", "g", 0, "Frames between key frames")
	flag.StringArrayVarP(&flagOutputs, "out", "o", nil, "Output file or URL")
	flag.StringVarP(&flagListen, "listen", "l", "", "Preview server address")
	flag.StringVar(&flagLogLevel, "log-level", "", "Log level")
	flag.BoolVarP(&flagHorizontalFlip, "hflip", "", false, "Flip horizontally")
	flag.BoolVarP(&flagVerticalFlip, "vflip", "", false, "Flip vertically")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Capture, encode and stream video

Usage: mediastreamd [OPTION]...

Video source:
  -i, --input=FILE       V4L2 device, or "testsrc" for colour bars
                         (default: /dev/video0)
  -f, --format=NAME      Capture pixel format, e.g. NV12 or YUY2
                         (default: chosen by the device)
  -x, --width=NUM        Set video width (default: 640)
  -y, --height=NUM       Set video height (default: 480)
  -r, --framerate=NUM    Set frame rate (default: 30)
      --hflip            Flip video horizontally
      --vflip            Flip video vertically

Encoder:
  -c, --codec=NAME       Output codec: h264, vp8 or vp9 (default: h264)
  -b, --bitrate=NUM      Target bitrate, in kbit/s (default: 1000)
  -g, --keyframe-interval=NUM
                         Force a key frame every NUM frames (default: 0,
                         left to the encoder)

Output:
  -o, --out=TARGET       Write the encoded stream to TARGET. May be given
                         more than once. TARGET is a file name ("-" for
                         stdout), a .mp4 file, or rtp://host:port
  -l, --listen=ADDR      Serve a live preview on ADDR, e.g. :8000

Miscellaneous:
      --log-level=LEVEL  error, warn, info, debug or trace. Per package
                         levels are read from LOGLEVEL=tag=level,...
  -h, --help             Prints this help message and exits
  -v, --version          Prints version information and exits`

var banner = [...][2]string{
	{`                        _  _       `, `     _                                 `},
	{`  _ __ ___    ___   __| |(_)  __ _ `, ` ___ | |_  _ __  ___   __ _  _ __ ___  `},
	{` | '_ ` + "`" + ` _ \  / _ \ / _` + "`" + ` || | / _` + "`" + ` |`, `/ __|| __|| '__|/ _ \ / _` + "`" + ` || '_ ` + "`" + ` _ \ `},
	{` | | | | | ||  __/| (_| || || (_| |`, `\__ \| |_ | |  |  __/| (_| || | | | | |`},
	{` |_| |_| |_| \___| \__,_||_| \__,_|`, `|___/ \__||_|   \___| \__,_||_| |_| |_|`},
}

// Help information is printed and program exits
func help() {
	b := color.New(color.FgCyan)
	y := color.New(color.FgYellow)
	for _, line := range banner {
		b.Print(line[0])
		y.Println(line[1])
	}
	fmt.Println()
	fmt.Println(helpString)
}
