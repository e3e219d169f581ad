// Package runnable provides the composition primitives used to build LLM
// pipelines: a generic [Runnable] unit of work, [Pipe] to chain two
// runnables, [Batch] to fan a runnable out over many inputs, and [WithLogging]
// to trace runs.
//
// Every runnable can be invoked for a single result or streamed. Streams are
// iter.Seq2 sequences of (chunk, error); an error is always the last element.
package runnable
