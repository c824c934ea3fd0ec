/*
Package debug provides APIs for conditional runtime assertions and debug logging
used by the memory resources.


Using Assert

To enable runtime assertions, build with the assert tag. When the assert tag is omitted,
the code for the assertion will be omitted from the binary.


Using Log

To enable runtime debug logs, build with the debug tag. When the debug tag is omitted,
the code for logging will be omitted from the binary. Debug logs go through a zap
development logger writing to stderr.
*/
package debug
