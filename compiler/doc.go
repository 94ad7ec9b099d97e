/*
Package compiler is the back end pipeline from IR text to selected instructions.

IR Text ->
	parse ->
S-expressions (ast) ->
	irtext ->
IR Trees (tree) in target Frames (frame) ->
	ProcEntryExit1 ->
	munch ->
Instructions (assem) ->
	ProcEntryExit2, ProcEntryExit3 ->
Procedures (frame.Proc) ->
	format ->
Listing

Register allocation is not done: listings name virtual registers as t<n>.
*/
package compiler
