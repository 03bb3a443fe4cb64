// Package cpu implements the control unit and assembler for the sim16
// machine.
//
// The machine has four 16-bit general purpose registers (A-D), each also
// addressable as two 8-bit halves (AH/AL through DH/DL), an instruction
// pointer, a status register and two physical stack pointers. The logical
// SP register resolves to the user or the supervisor stack pointer
// depending on the privilege bit of the status register.
//
// The control unit executes one instruction per Step: fetch, decode,
// operand fetch and execute. Failures surface as typed exceptions that are
// dispatched to the exception vector when raised in user mode; in
// supervisor mode they leave the machine in a terminal FAULT state.
//
// The assembler is a single pass assembler with a final label fixup pass,
// supporting labels, equates and compile-time expression evaluation.
package cpu
