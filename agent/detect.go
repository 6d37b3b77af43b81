package agent

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// repeatNotice steers the model out of a tool-call loop. Injected as a
// user message when the detector fires; the run itself keeps going.
const repeatNotice = "You have repeated the same tool calls several times without making progress. " +
	"Review the results you already have and take a different action, or give your final answer."

// callSignature is a deterministic fingerprint of a tool call: name plus a
// hash of its arguments.
func callSignature(name string, arguments json.RawMessage) string {
	h := sha256.Sum256(arguments)
	return fmt.Sprintf("%s:%x", name, h[:8])
}

// detectRepeat reports whether the last window signatures form a repeating
// pattern of length 1, 2, or 3. Fewer than window signatures never count
// as a loop.
func detectRepeat(sigs []string, window int) bool {
	if len(sigs) < window {
		return false
	}
	recent := sigs[len(sigs)-window:]

	for patternLen := 1; patternLen <= 3; patternLen++ {
		if window%patternLen != 0 {
			continue
		}
		pattern := recent[:patternLen]
		allMatch := true
		for i := patternLen; i < window && allMatch; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if recent[i+j] != pattern[j] {
					allMatch = false
					break
				}
			}
		}
		if allMatch {
			return true
		}
	}
	return false
}
