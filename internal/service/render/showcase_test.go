package render

import "testing"

const showcaseFixture = `<!doctype html>
<html><body>
<div class="PlayerInfo"><figure class="avatar" style="background-image: url(/ui/UI_AvatarIcon_PlayerGirl.png)"></figure></div>
<div class="CharacterList">
	<div class="avatar live"><figure class="chara" style="background-image: url(&quot;/ui/UI_AvatarIcon_Side_Qin.png&quot;);"></figure></div>
	<div class="avatar"><figure class="chara" style="width: 64px; Background-Image: url(/ui/ui_avataricon_side_ayaka.png)"></figure></div>
	<div class="avatar"><figure class="chara" style="background-color: red"></figure></div>
</div>
</body></html>`

func TestFindCharacterTile(t *testing.T) {
	tests := []struct {
		key   string
		index int
		found bool
	}{
		{"Qin", 1, true},
		{"Ayaka", 2, true},
		{"ayaka", 2, true},
		{"PlayerGirl", 0, true},
		{"Zhongli", -1, false},
		{"", -1, false},
	}
	for _, tt := range tests {
		index, found, err := FindCharacterTile(showcaseFixture, tt.key)
		if err != nil {
			t.Fatalf("%s: %v", tt.key, err)
		}
		if index != tt.index || found != tt.found {
			t.Errorf("FindCharacterTile(%q) = %d, %v; want %d, %v", tt.key, index, found, tt.index, tt.found)
		}
	}
}

func TestBackgroundImageIgnoresOtherDeclarations(t *testing.T) {
	if got := backgroundImage("color: red; background-color: blue"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := backgroundImage("background-image:url(a.png)"); got != "url(a.png)" {
		t.Fatalf("unexpected value %q", got)
	}
}
