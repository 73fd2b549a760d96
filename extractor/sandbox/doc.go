/*
Package sandbox is an in-process page world for pagevar. It runs the page's scripts in a
goja runtime whose global object is `window`, keeps the document in a goquery tree and
treats the Go host as the isolated world: Listen subscribes Go handlers to the same
message events page scripts see.

# Event loop

A Page owns one goroutine and a task queue. Every touch of the runtime or the document
happens on it. window.postMessage clones its argument immediately and dispatches the
message event as a later task, the way browsers do, so a listener registered before a
script is appended never misses that script's broadcast.

# What crosses postMessage

Messages are structured-cloned into Go values: numbers become float64, arrays
[]interface{}, objects map[string]interface{} of their own enumerable properties, Dates
time.Time and Errors a {name, message} map. undefined properties are dropped, undefined
array slots become nil. Functions and symbols anywhere in the value make postMessage throw
a DataCloneError and nothing is sent. Cyclic values are rejected the same way, so are
arrays longer than 1<<20 (holes count) and values still being cloned when the task's
script timeout runs out. Map, Set, RegExp and other exotic objects arrive as plain objects.

# Content security policy

A policy from Config or a <meta http-equiv="Content-Security-Policy"> is honored for inline
scripts: without 'unsafe-inline' (or a matching nonce or hash) the element is inserted but never run
and a violation is written to the console.
*/
package sandbox
