package classify_test

import (
	"testing"

	"github.com/jeweledtech/bare-metal-forth/internal/classify"
	"github.com/jeweledtech/bare-metal-forth/internal/uir"
	"github.com/jeweledtech/bare-metal-forth/internal/x86"
)

// TestDetectPollLoopRecognizesStatusWait decodes and lifts:
//
//	IN  AL, 0x60
//	AND AL, 0x80
//	CMP AL, 0x80
//	JNE  <back to the IN above>
//
// the compiled shape of "wait until the masked status bit is set".
func TestDetectPollLoopRecognizesStatusWait(t *testing.T) {
	code := []byte{
		0xE4, 0x60, // IN AL, 0x60
		0x80, 0xE0, 0x80, // AND AL, 0x80
		0x80, 0xF8, 0x80, // CMP AL, 0x80
		0x75, 0xF6, // JNE rel8 (back to the IN at the start of the block)
		0xC3, // RET
	}
	decoded := x86.DecodeRange(code, 0, 0x1000)
	fn := uir.Lift(decoded, 0x1000)

	pat, ok := classify.DetectPollLoop(fn)
	if !ok {
		t.Fatal("DetectPollLoop did not recognize the status-wait loop")
	}
	if pat.Port != 0x60 || pat.Mask != 0x80 || pat.Expected != 0x80 {
		t.Errorf("pattern = %+v, want port=0x60 mask=0x80 expected=0x80", pat)
	}
	if pat.TimeoutUS != classify.DefaultPollTimeoutUS {
		t.Errorf("TimeoutUS = %d, want the default %d", pat.TimeoutUS, classify.DefaultPollTimeoutUS)
	}
}

func TestDetectPollLoopRejectsNonLoopingBody(t *testing.T) {
	code := []byte{0xE4, 0x60, 0xC3} // IN AL, 0x60 ; RET — no retry branch
	decoded := x86.DecodeRange(code, 0, 0x1000)
	fn := uir.Lift(decoded, 0x1000)

	if _, ok := classify.DetectPollLoop(fn); ok {
		t.Error("DetectPollLoop should not fire without a self-looping branch")
	}
}

// TestDetectInitSequenceRecognizesFlatWrites decodes and lifts:
//
//	MOV AL, 0x03 ; OUT 0x64, AL
//	MOV AL, 0x05 ; OUT 0x65, AL
//	RET
//
// the compiled shape of a fixed device configuration sequence.
func TestDetectInitSequenceRecognizesFlatWrites(t *testing.T) {
	code := []byte{
		0xB0, 0x03, // MOV AL, 0x03
		0xE6, 0x64, // OUT 0x64, AL
		0xB0, 0x05, // MOV AL, 0x05
		0xE6, 0x65, // OUT 0x65, AL
		0xC3, // RET
	}
	decoded := x86.DecodeRange(code, 0, 0x2000)
	fn := uir.Lift(decoded, 0x2000)

	steps, ok := classify.DetectInitSequence(fn)
	if !ok {
		t.Fatal("DetectInitSequence did not recognize the flat write sequence")
	}
	want := []classify.InitStep{{Port: 0x64, Value: 0x03}, {Port: 0x65, Value: 0x05}}
	if len(steps) != len(want) {
		t.Fatalf("steps = %+v, want %+v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("step[%d] = %+v, want %+v", i, steps[i], want[i])
		}
	}
}

func TestDetectInitSequenceRejectsSingleWrite(t *testing.T) {
	code := []byte{0xB0, 0x03, 0xE6, 0x64, 0xC3} // only one write: not a "sequence"
	decoded := x86.DecodeRange(code, 0, 0x2000)
	fn := uir.Lift(decoded, 0x2000)

	if _, ok := classify.DetectInitSequence(fn); ok {
		t.Error("DetectInitSequence should require at least two writes")
	}
}

func TestDetectInitSequenceRejectsReads(t *testing.T) {
	code := []byte{
		0xB0, 0x03, // MOV AL, 0x03
		0xE6, 0x64, // OUT 0x64, AL
		0xE4, 0x60, // IN AL, 0x60 — disqualifies this as a write-only sequence
		0xC3,
	}
	decoded := x86.DecodeRange(code, 0, 0x2000)
	fn := uir.Lift(decoded, 0x2000)

	if _, ok := classify.DetectInitSequence(fn); ok {
		t.Error("DetectInitSequence should not fire on a function that also reads a port")
	}
}
