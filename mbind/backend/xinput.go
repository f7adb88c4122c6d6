package backend

// XInput button bits in report order of the game's gamepad buttons
var xinputButtons = []struct {
	mask   uint16
	button int
}{
	{0x1000, 1},  // A
	{0x2000, 2},  // B
	{0x4000, 3},  // X
	{0x8000, 4},  // Y
	{0x0100, 5},  // LB
	{0x0200, 6},  // RB
	{0x0010, 7},  // Back
	{0x0020, 8},  // Start
	{0x0040, 9},  // LS
	{0x0080, 10}, // RS
	{0x0001, 11}, // DPad up
	{0x0002, 12}, // DPad down
	{0x0004, 13}, // DPad left
	{0x0008, 14}, // DPad right
}

// XInputButtons lists the gamepad button numbers set in an XInput mask
func XInputButtons(mask uint16) []int {
	var out []int
	for _, b := range xinputButtons {
		if mask&b.mask != 0 {
			out = append(out, b.button)
		}
	}
	return out
}
