package ir

// OperandKind classifies what an instruction's operand slot may hold.
type OperandKind uint8

const (
	Unused OperandKind = iota
	ImmediateOperand
	LabelOperand
	RegisterOperand
	ValueOperand
	FunctionOperand
)

// NoAssign marks an OpInfo as never assigning a register.
const NoAssign = 0xFF

// OpInfo is the static, per-opcode description of operand shape and
// side effects. It never varies at runtime.
type OpInfo struct {
	Name               string
	OperandCount       uint8
	Operands           [3]OperandKind
	AssignsOperandIdx  uint8
	HasExternalEffects bool
	HasSideEffectsFor  [3]bool
}

// opcodeInfo is keyed by OpCode and mirrors the upstream codegen library's
// opcodeInfo table (original_source/src/IR.cpp) field for field, including
// the this_ptr/ret_ptr/argument frame opcodes.
var opcodeInfo = [opCodeCount]OpInfo{
	Noop:       {Name: "noop", OperandCount: 0, AssignsOperandIdx: NoAssign},
	Label:      {Name: "label", OperandCount: 1, Operands: [3]OperandKind{LabelOperand}, AssignsOperandIdx: NoAssign},
	StackAlloc: {Name: "stack_alloc", OperandCount: 2, Operands: [3]OperandKind{ImmediateOperand, ImmediateOperand}, AssignsOperandIdx: NoAssign},
	StackPtr:   {Name: "stack_ptr", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, ImmediateOperand}, AssignsOperandIdx: 0},
	StackFree:  {Name: "stack_free", OperandCount: 1, Operands: [3]OperandKind{ImmediateOperand}, AssignsOperandIdx: NoAssign},
	ValuePtr:   {Name: "value_ptr", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, ImmediateOperand}, AssignsOperandIdx: 0},
	ThisPtr:    {Name: "this_ptr", OperandCount: 1, Operands: [3]OperandKind{RegisterOperand}, AssignsOperandIdx: 0},
	RetPtr:     {Name: "ret_ptr", OperandCount: 1, Operands: [3]OperandKind{RegisterOperand}, AssignsOperandIdx: 0},
	Argument:   {Name: "argument", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, ImmediateOperand}, AssignsOperandIdx: 0},
	Reserve:    {Name: "reserve", OperandCount: 1, Operands: [3]OperandKind{RegisterOperand}, AssignsOperandIdx: 0},
	Resolve:    {Name: "resolve", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, ValueOperand}, AssignsOperandIdx: NoAssign},

	Load:  {Name: "load", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, RegisterOperand, ImmediateOperand}, AssignsOperandIdx: 0},
	Store: {Name: "store", OperandCount: 3, Operands: [3]OperandKind{ValueOperand, RegisterOperand, ImmediateOperand}, AssignsOperandIdx: NoAssign},

	Jump:   {Name: "jump", OperandCount: 1, Operands: [3]OperandKind{LabelOperand}, AssignsOperandIdx: NoAssign},
	Cvt:    {Name: "cvt", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ImmediateOperand}, AssignsOperandIdx: 0},
	Param:  {Name: "param", OperandCount: 1, Operands: [3]OperandKind{ValueOperand}, AssignsOperandIdx: NoAssign},
	Call:   {Name: "call", OperandCount: 3, Operands: [3]OperandKind{FunctionOperand, RegisterOperand, ValueOperand}, AssignsOperandIdx: 1, HasExternalEffects: true},
	Ret:    {Name: "ret", OperandCount: 1, Operands: [3]OperandKind{ValueOperand}, AssignsOperandIdx: NoAssign},
	Branch: {Name: "branch", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, LabelOperand}, AssignsOperandIdx: NoAssign},

	Not:    {Name: "_not", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, ValueOperand}, AssignsOperandIdx: 0},
	Inv:    {Name: "inv", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, ValueOperand}, AssignsOperandIdx: 0},
	Shl:    {Name: "shl", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	Shr:    {Name: "shr", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	Land:   {Name: "land", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	Band:   {Name: "band", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	Lor:    {Name: "lor", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	Bor:    {Name: "bor", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	Xor:    {Name: "_xor", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	Assign: {Name: "assign", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, ValueOperand}, AssignsOperandIdx: 0},

	VSet:   {Name: "vset", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, RegisterOperand}, AssignsOperandIdx: NoAssign, HasSideEffectsFor: [3]bool{false, true}},
	VAdd:   {Name: "vadd", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, RegisterOperand}, AssignsOperandIdx: NoAssign, HasSideEffectsFor: [3]bool{false, true}},
	VSub:   {Name: "vsub", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, RegisterOperand}, AssignsOperandIdx: NoAssign, HasSideEffectsFor: [3]bool{false, true}},
	VMul:   {Name: "vmul", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, RegisterOperand}, AssignsOperandIdx: NoAssign, HasSideEffectsFor: [3]bool{false, true}},
	VDiv:   {Name: "vdiv", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, RegisterOperand}, AssignsOperandIdx: NoAssign, HasSideEffectsFor: [3]bool{false, true}},
	VMod:   {Name: "vmod", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, RegisterOperand}, AssignsOperandIdx: NoAssign, HasSideEffectsFor: [3]bool{false, true}},
	VNeg:   {Name: "vneg", OperandCount: 1, Operands: [3]OperandKind{RegisterOperand}, AssignsOperandIdx: NoAssign, HasSideEffectsFor: [3]bool{false, true}},
	VDot:   {Name: "vdot", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, RegisterOperand, RegisterOperand}, AssignsOperandIdx: 0},
	VMag:   {Name: "vmag", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, RegisterOperand}, AssignsOperandIdx: 0},
	VMagSq: {Name: "vmagsq", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, RegisterOperand}, AssignsOperandIdx: 0},
	VNorm:  {Name: "vnorm", OperandCount: 1, Operands: [3]OperandKind{RegisterOperand}, AssignsOperandIdx: NoAssign, HasSideEffectsFor: [3]bool{false, true}},
	VCross: {Name: "vcross", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, RegisterOperand, RegisterOperand}, AssignsOperandIdx: NoAssign, HasSideEffectsFor: [3]bool{false, true}},

	IAdd: {Name: "iadd", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	UAdd: {Name: "uadd", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	FAdd: {Name: "fadd", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	DAdd: {Name: "dadd", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	ISub: {Name: "isub", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	USub: {Name: "usub", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	FSub: {Name: "fsub", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	DSub: {Name: "dsub", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	IMul: {Name: "imul", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	UMul: {Name: "umul", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	FMul: {Name: "fmul", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	DMul: {Name: "dmul", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	IDiv: {Name: "idiv", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	UDiv: {Name: "udiv", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	FDiv: {Name: "fdiv", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	DDiv: {Name: "ddiv", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	IMod: {Name: "imod", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	UMod: {Name: "umod", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	FMod: {Name: "fmod", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	DMod: {Name: "dmod", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	INeg: {Name: "ineg", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, ValueOperand}, AssignsOperandIdx: 0},
	FNeg: {Name: "fneg", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, ValueOperand}, AssignsOperandIdx: 0},
	DNeg: {Name: "dneg", OperandCount: 2, Operands: [3]OperandKind{RegisterOperand, ValueOperand}, AssignsOperandIdx: 0},

	IInc: {Name: "iinc", OperandCount: 1, Operands: [3]OperandKind{RegisterOperand}, AssignsOperandIdx: 0},
	UInc: {Name: "uinc", OperandCount: 1, Operands: [3]OperandKind{RegisterOperand}, AssignsOperandIdx: 0},
	FInc: {Name: "finc", OperandCount: 1, Operands: [3]OperandKind{RegisterOperand}, AssignsOperandIdx: 0},
	DInc: {Name: "dinc", OperandCount: 1, Operands: [3]OperandKind{RegisterOperand}, AssignsOperandIdx: 0},
	IDec: {Name: "idec", OperandCount: 1, Operands: [3]OperandKind{RegisterOperand}, AssignsOperandIdx: 0},
	UDec: {Name: "udec", OperandCount: 1, Operands: [3]OperandKind{RegisterOperand}, AssignsOperandIdx: 0},
	FDec: {Name: "fdec", OperandCount: 1, Operands: [3]OperandKind{RegisterOperand}, AssignsOperandIdx: 0},
	DDec: {Name: "ddec", OperandCount: 1, Operands: [3]OperandKind{RegisterOperand}, AssignsOperandIdx: 0},

	ILt:  {Name: "ilt", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	ULt:  {Name: "ult", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	FLt:  {Name: "flt", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	DLt:  {Name: "dlt", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	ILte: {Name: "ilte", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	ULte: {Name: "ulte", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	FLte: {Name: "flte", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	DLte: {Name: "dlte", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	IGt:  {Name: "igt", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	UGt:  {Name: "ugt", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	FGt:  {Name: "fgt", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	DGt:  {Name: "dgt", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	IGte: {Name: "igte", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	UGte: {Name: "ugte", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	FGte: {Name: "fgte", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	DGte: {Name: "dgte", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	IEq:  {Name: "ieq", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	UEq:  {Name: "ueq", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	FEq:  {Name: "feq", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	DEq:  {Name: "deq", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	INeq: {Name: "ineq", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	UNeq: {Name: "uneq", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	FNeq: {Name: "fneq", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
	DNeq: {Name: "dneq", OperandCount: 3, Operands: [3]OperandKind{RegisterOperand, ValueOperand, ValueOperand}, AssignsOperandIdx: 0},
}

// Info returns the static OpInfo record for op.
func Info(op OpCode) *OpInfo {
	return &opcodeInfo[op]
}

// comparisonFamilies and arithmeticFamilies group the four-way {i,u,f,d}
// typed opcodes so the builder and constant folder can select a family
// member from a receiver type without a long hand-written switch at every
// call site.
var arithmeticFamilies = map[string][4]OpCode{
	"add": {IAdd, UAdd, FAdd, DAdd},
	"sub": {ISub, USub, FSub, DSub},
	"mul": {IMul, UMul, FMul, DMul},
	"div": {IDiv, UDiv, FDiv, DDiv},
	"mod": {IMod, UMod, FMod, DMod},
	"lt":  {ILt, ULt, FLt, DLt},
	"lte": {ILte, ULte, FLte, DLte},
	"gt":  {IGt, UGt, FGt, DGt},
	"gte": {IGte, UGte, FGte, DGte},
	"eq":  {IEq, UEq, FEq, DEq},
	"neq": {INeq, UNeq, FNeq, DNeq},
	"inc": {IInc, UInc, FInc, DInc},
	"dec": {IDec, UDec, FDec, DDec},
}

// FamilyIndex selects which of {i,u,f,d} a primitive type falls into.
func FamilyIndex(info TypeInfo) int {
	switch {
	case info.IsFloatingPoint && info.Size == 4:
		return 2 // f
	case info.IsFloatingPoint:
		return 3 // d
	case info.IsUnsigned:
		return 1 // u
	default:
		return 0 // i
	}
}

// FamilyOp returns the {i,u,f,d} member of the named arithmetic/comparison
// family selected by t's FamilyIndex.
func FamilyOp(name string, t TypeInfo) (OpCode, bool) {
	fam, ok := arithmeticFamilies[name]
	if !ok {
		return 0, false
	}
	return fam[FamilyIndex(t)], true
}
