package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/nopewallet/internal/wallet"
)

func TestReadMnemonic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"one line", testMnemonic + "\n"},
		{"one line without newline", testMnemonic},
		{"numbered on one line", "1. abandon 2. abandon 3. abandon 4. abandon 5. abandon 6. abandon " +
			"7. abandon 8. abandon 9. abandon 10. abandon 11. abandon 12. about\n"},
		{"numbered over lines", "1. abandon\n2. abandon\n3. abandon\n4. abandon\n5. abandon\n6. abandon\n" +
			"7. abandon\n8. abandon\n9. abandon\n10. abandon\n11. abandon\n12. about\n"},
		{"two halves", "abandon abandon abandon abandon abandon abandon\nabandon abandon abandon abandon abandon about\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := readMnemonic(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, testMnemonic, wallet.NormalizeMnemonicInput(got))
		})
	}
}

func TestReadMnemonic_StopsAtValidPhrase(t *testing.T) {
	t.Parallel()
	got, err := readMnemonic(strings.NewReader(testMnemonic + "\nnext prompt answer\n"))
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, got)
}

func TestReadMnemonic_BlankLineEndsInput(t *testing.T) {
	t.Parallel()
	got, err := readMnemonic(strings.NewReader("abandon abandon\n\nabout\n"))
	require.NoError(t, err)
	assert.Equal(t, "abandon abandon", got)
}

func TestReadMnemonic_EmptyInput(t *testing.T) {
	t.Parallel()
	_, err := readMnemonic(strings.NewReader(""))
	require.Error(t, err)
}
