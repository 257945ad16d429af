// Package y4m reads and writes YUV4MPEG2 streams.
//
// The reader implements [wydecoder.Source]: frames come out in their
// native planar 4:2:0 layout with frame accurate seeking, which makes
// y4m files a convenient way to feed raw video into a session and to
// build test fixtures with [Writer].
package y4m
