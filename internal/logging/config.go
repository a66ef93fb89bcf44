package logging

import (
	"fmt"
	"os"
	"strings"
)

const envVar = "LOGLEVEL"

var tagLevels []struct {
	tag   string
	level Level
}

func init() {
	parseDirectives(os.Getenv(envVar))
}

// Parse comma-separated "tag=level" directives. If "tag=" is absent, use the
// level as the default.
func parseDirectives(s string) {
	for _, d := range strings.Split(s, ",") {
		if d == "" {
			continue
		}
		v := strings.SplitN(d, "=", 2)
		levelString := v[len(v)-1]
		if level, err := ParseLevel(levelString); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid %s directive '%s': %s\n", envVar, d, err)
		} else {
			if len(v) == 1 {
				SetLevel(level)
			} else {
				tagLevels = append(tagLevels, struct {
					tag   string
					level Level
				}{v[0], level})
			}
		}
	}
}

func lookupLevel(tag string) *Level {
	for _, e := range tagLevels {
		if e.tag == tag {
			level := e.level
			return &level
		}
	}
	return nil
}
