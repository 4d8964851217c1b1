package pvm

// Opcode tags, canonical 8-bit values per §6.
const (
	opTrap        = 0
	opFallthrough = 1

	opEcalli = 10

	opLoadImm64 = 20

	opStoreImmU8  = 30
	opStoreImmU16 = 31
	opStoreImmU32 = 32
	opStoreImmU64 = 33

	opJump    = 40
	opJumpInd = 50
	opLoadImm = 51

	opLoadU8  = 52
	opLoadI8  = 53
	opLoadU16 = 54
	opLoadI16 = 55
	opLoadU32 = 56
	opLoadI32 = 57
	opLoadU64 = 58

	opStoreU8  = 59
	opStoreU16 = 60
	opStoreU32 = 61
	opStoreU64 = 62

	opStoreImmIndU8  = 70
	opStoreImmIndU16 = 71
	opStoreImmIndU32 = 72
	opStoreImmIndU64 = 73

	opLoadImmJump = 80

	// BRANCH_*_IMM, 81..90: reg OP imm -> branch.
	opBranchEqImm   = 81
	opBranchNeImm   = 82
	opBranchLtUImm  = 83
	opBranchLeUImm  = 84
	opBranchGeUImm  = 85
	opBranchGtUImm  = 86
	opBranchLtSImm  = 87
	opBranchLeSImm  = 88
	opBranchGeSImm  = 89
	opBranchGtSImm  = 90

	opMoveReg = 100
	opSbrk    = 101

	// bitcount/extend/reverse, 102..111.
	opCountSetBits64  = 102
	opCountSetBits32  = 103
	opLeadingZeroBits64 = 104
	opLeadingZeroBits32 = 105
	opTrailingZeroBits64 = 106
	opTrailingZeroBits32 = 107
	opSignExtend8        = 108
	opSignExtend16       = 109
	opZeroExtend16       = 110
	opReverseBytes       = 111

	// STORE_IND / LOAD_IND family, 120..130.
	opStoreIndU8  = 120
	opStoreIndU16 = 121
	opStoreIndU32 = 122
	opStoreIndU64 = 123
	opLoadIndU8   = 124
	opLoadIndI8   = 125
	opLoadIndU16  = 126
	opLoadIndI16  = 127
	opLoadIndU32  = 128
	opLoadIndI32  = 129
	opLoadIndU64  = 130

	// immediate arithmetic, 131..161.
	opAddImm32     = 131
	opAndImm       = 132
	opXorImm       = 133
	opOrImm        = 134
	opMulImm32     = 135
	opSetLtUImm    = 136
	opSetLtSImm    = 137
	opShloLImm32   = 138
	opShloRImm32   = 139
	opSharRImm32   = 140
	opNegAddImm32  = 141
	opSetGtUImm    = 142
	opSetGtSImm    = 143
	opShloLImmAlt32 = 144
	opShloRImmAlt32 = 145
	opSharRImmAlt32 = 146
	opCmovIzImm    = 147
	opCmovNzImm    = 148
	opAddImm64     = 149
	opMulImm64     = 150
	opShloLImm64   = 151
	opShloRImm64   = 152
	opSharRImm64   = 153
	opNegAddImm64  = 154
	opShloLImmAlt64 = 155
	opShloRImmAlt64 = 156
	opSharRImmAlt64 = 157
	opRotRImm32     = 158
	opRotRImm64     = 159
	opRotRImmAlt32  = 160
	opRotRImmAlt64  = 161

	// register branches, 170..175.
	opBranchEq  = 170
	opBranchNe  = 171
	opBranchLtU = 172
	opBranchLtS = 173
	opBranchGeU = 174
	opBranchGeS = 175

	opLoadImmJumpInd = 180

	// 32/64-bit arithmetic, 190..209.
	opAdd32    = 190
	opSub32    = 191
	opMul32    = 192
	opDivU32   = 193
	opDivS32   = 194
	opRemU32   = 195
	opRemS32   = 196
	opShloL32  = 197
	opShloR32  = 198
	opSharR32  = 199
	opAdd64    = 200
	opSub64    = 201
	opMul64    = 202
	opDivU64   = 203
	opDivS64   = 204
	opRemU64   = 205
	opRemS64   = 206
	opShloL64  = 207
	opShloR64  = 208
	opSharR64  = 209

	// bitwise, 210..212.
	opAnd = 210
	opXor = 211
	opOr  = 212

	// multiply-upper, 213..215.
	opMulUpperUU = 213
	opMulUpperSS = 214
	opMulUpperSU = 215

	// set-less-than, 216..217.
	opSetLtU = 216
	opSetLtS = 217

	// cmov, 218..219.
	opCmovIz = 218
	opCmovNz = 219

	// rotates, 220..223.
	opRotL32 = 220
	opRotL64 = 221
	opRotR32 = 222
	opRotR64 = 223

	// and-inv/or-inv/xnor, 224..226.
	opAndInv = 224
	opOrInv  = 225
	opXnor   = 226

	// min/max, 227..230.
	opMinU = 227
	opMinS = 228
	opMaxU = 229
	opMaxS = 230
)
