package cpu

// push decrements SP by a word and stores value there.
func (cpu *Cpu) push(value uint16) (err error) {
	bank := cpu.Registers

	sp := bank.SP() - 2
	err = cpu.Memory.StoreWord(int(sp), value, nil)
	if err != nil {
		err = cpu.raiseAt(EXCEPTION_STACK_ACCESS_ERROR, sp, err)
		return
	}

	bank.SetSP(sp)
	return
}

// pop loads the word at SP and increments SP by a word.
func (cpu *Cpu) pop() (value uint16, err error) {
	bank := cpu.Registers

	sp := bank.SP()
	value, err = cpu.Memory.LoadWord(int(sp))
	if err != nil {
		err = cpu.raiseAt(EXCEPTION_STACK_ACCESS_ERROR, sp, err)
		return
	}

	bank.SetSP(sp + 2)
	return
}

// Peek returns the word n entries below the top of the active stack,
// without changing SP.
func (cpu *Cpu) Peek(n int) (value uint16, err error) {
	sp := int(cpu.Registers.SP()) + 2*n
	value, err = cpu.Memory.LoadWord(sp)
	return
}
