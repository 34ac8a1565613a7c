// Package chunk contains the core components of a concurrent, chunk-based
// data-loading engine for feeding training pipelines. A pool of preloader
// workers pulls entire chunks of a dataset in parallel while a consumer
// dequeues fixed-size batches, amortizing I/O and deserialization behind
// computation. This root package defines the types which are employed during
// regular use of the engine, as well as in its extension, and is an overview
// of its key concepts.
package chunk
