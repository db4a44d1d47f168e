// Package spawn launches programs through a helper process that runs the
// child-side launch sequence from pkg/childproc.
//
// The parent re-executes the current binary as the helper, hands it the
// launch descriptor over an inherited pipe, and learns the outcome from the
// fail pipe: an alive ping, then either EOF (the program is running) or a
// single errno (the launch failed). Call Init at the start of main so the
// binary can serve as its own helper.
package spawn
