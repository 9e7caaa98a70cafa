// Package patch reads unified diff text: it counts added and removed lines,
// reconstructs the post-change side of a file with its line numbers intact,
// and infers a file's language from its extension.
package patch
