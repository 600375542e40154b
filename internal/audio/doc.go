// Package audio turns source videos into recognizer-ready PCM.
//
// FFmpegExtractor shells out to ffmpeg to produce one mono 16 kHz 16-bit WAV
// per job inside the run's work directory, and WAVReader walks the resulting
// RIFF container frame by frame so the recognizer can be fed incrementally
// without loading the whole file.
package audio
