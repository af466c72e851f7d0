package handler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidator_TeamNumberControlCharacters(t *testing.T) {
	v := NewValidator()
	base := submitReq{RegularSlotIDs: []uint64{1, 2, 3}, ChampionshipSlotID: 4}

	for _, team := range []string{"1\r\nBcc: x@ev.io", "12\t3", "7\x00", "ü1"} {
		req := base
		req.TeamNumber = team
		err := v.Validate(&req)
		require.Error(t, err, "team %q", team)
		require.Contains(t, err.Error(), "team_number must contain printable ASCII characters only")
	}

	for _, team := range []string{"101", "A-12", "team 7"} {
		req := base
		req.TeamNumber = team
		require.NoError(t, v.Validate(&req), "team %q", team)
	}
}
