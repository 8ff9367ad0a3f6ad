// internal/models/character_test.go
package models

import "testing"

func TestCharacterCloneIsDeep(t *testing.T) {
	original := &Character{
		Description: "desc",
		Scenes:      []string{"A", "B"},
		Dialogue:    []string{"line"},
	}

	clone := original.Clone()
	clone.Scenes[0] = "changed"
	clone.Dialogue[0] = "changed"

	if original.Scenes[0] != "A" || original.Dialogue[0] != "line" {
		t.Fatal("克隆的切片不应与原角色共享底层数组")
	}
}

func TestCharacterCloneNil(t *testing.T) {
	var c *Character
	if c.Clone() != nil {
		t.Fatal("nil 角色的克隆应为 nil")
	}
}

func TestCompatibleWith(t *testing.T) {
	c := &Character{Scenes: []string{"Departure Lounge", "Check-in Desk"}}

	if !c.CompatibleWith("Departure Lounge") {
		t.Fatal("列表中的场景应判定为兼容")
	}
	if c.CompatibleWith("Runway") {
		t.Fatal("列表外的场景应判定为不兼容")
	}

	empty := &Character{}
	if empty.CompatibleWith("Departure Lounge") {
		t.Fatal("空场景列表的角色不应与任何场景兼容")
	}
}

func TestCameraShotComplete(t *testing.T) {
	cases := []struct {
		shot CameraShot
		want bool
	}{
		{CameraShot{ShotType: "wide", Movement: "static"}, true},
		{CameraShot{ShotType: "wide"}, false},
		{CameraShot{Movement: "pan"}, false},
		{CameraShot{}, false},
	}
	for _, tc := range cases {
		if got := tc.shot.Complete(); got != tc.want {
			t.Fatalf("镜头完整性判定不正确: %+v -> %v", tc.shot, got)
		}
	}
}

func TestValidShotTypeAndMovement(t *testing.T) {
	if !ValidShotType("") || !ValidMovement("") {
		t.Fatal("空值表示草稿，应判定为有效")
	}
	if !ValidShotType("two-shot") || !ValidMovement("tilt") {
		t.Fatal("列表内的取值应判定为有效")
	}
	if ValidShotType("drone") || ValidMovement("orbit") {
		t.Fatal("列表外的取值应判定为无效")
	}
}
