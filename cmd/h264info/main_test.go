package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	stream := []byte{
		0, 0, 0, 1, 0x67, 0x42, 0xc0, 0x0b, 0xda, 0x0b, 0x13, 0x90,
		0, 0, 0, 1, 0x68, 0xce, 0x3c, 0x80,
		0, 0, 1, 0x65, 0xb8, 0x04,
		0, 0, 1, 0x41, 0x9a, 0x02,
		0, 0, 1, 0x41, 0x9a, 0x03,
	}

	var out bytes.Buffer
	require.NoError(t, summarize(bytes.NewReader(stream), &out))
	s := out.String()
	assert.Contains(t, s, "profile 66, level 11, 176x144")
	assert.Regexp(t, `non-IDR slice\s+2`, s)
	assert.Regexp(t, `IDR slice\s+1`, s)
	assert.Regexp(t, `bytes\s+21\n`, s)
}
