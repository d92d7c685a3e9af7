// Package video provides decoded frame rasters and sequential frame decoders.
//
// A Frame is a packed 3-channel raster in BGR byte order, row-major, with a
// stride of 3*Width bytes. Frames are treated as immutable once decoded; use
// Clone to obtain an independently owned copy.
//
// # Decoders
//
// A Decoder yields frames one at a time:
//   - Seek positions the decoder so the next ReadNext returns that frame index
//   - ReadNext returns the next frame, or io.EOF at end of stream
//   - Close releases the underlying process or file handles
//
// Two implementations are provided:
//   - FFmpegDecoder pipes rawvideo bgr24 output from an ffmpeg process
//   - SequenceDecoder reads a sorted directory of still images
//
// Any other failure to produce the next frame is reported as a *DecodeError
// carrying the frame index that could not be read.
//
// # Ownership
//
// A decoder is a single exclusively owned resource. Lease guards it so that
// at most one scan reads from it at a time.
package video
