// Package normalisers turns uploaded files and crawled pages into plain
// text documents ready for chunking.
//
// Each format lives in its own subpackage. The Registry routes a raw
// document to the highest-priority normaliser for its MIME type.
package normalisers
