package knowledge

import (
	"reflect"
	"testing"
)

func TestFlattenMetadata(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]any
		want map[string]string
	}{
		{
			name: "flat values stringified",
			meta: map[string]any{"name": "林远", "level": 3, "active": true},
			want: map[string]string{"name": "林远", "level": "3", "active": "true"},
		},
		{
			name: "nested maps join with underscore",
			meta: map[string]any{
				"stats": map[string]any{"strength": 10, "magic": map[string]any{"fire": "high"}},
			},
			want: map[string]string{"stats_strength": "10", "stats_magic_fire": "high"},
		},
		{
			name: "nil values skipped",
			meta: map[string]any{"name": "林远", "alias": nil},
			want: map[string]string{"name": "林远"},
		},
		{
			name: "empty input",
			meta: nil,
			want: map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenMetadata(tt.meta)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FlattenMetadata() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMergeMetadata(t *testing.T) {
	scope := Scope{UserID: "u1", ProjectID: "p1"}
	current := map[string]string{
		"user_id":    "u1",
		"project_id": "p1",
		"name":       "林远",
		"mood":       "平静",
	}

	got := MergeMetadata(current, map[string]any{
		"mood":   nil,      // 显式 nil 删除
		"name":   "沈清秋",    // 覆盖
		"weapon": "长剑",     // 新增
	}, scope)

	if _, ok := got["mood"]; ok {
		t.Error("nil patch value should remove the key")
	}
	if got["name"] != "沈清秋" {
		t.Errorf("name = %q, want 沈清秋", got["name"])
	}
	if got["weapon"] != "长剑" {
		t.Errorf("weapon = %q, want 长剑", got["weapon"])
	}
}

func TestMergeMetadataScopeKeysImmune(t *testing.T) {
	scope := Scope{UserID: "u1", ProjectID: "p1"}
	current := map[string]string{"user_id": "u1", "project_id": "p1"}

	got := MergeMetadata(current, map[string]any{
		"user_id":    "attacker", // 覆盖被拒
		"project_id": nil,        // 删除被拒
	}, scope)

	if got["user_id"] != "u1" {
		t.Errorf("user_id = %q, want u1 (scope key must not be overwritten)", got["user_id"])
	}
	if got["project_id"] != "p1" {
		t.Errorf("project_id = %q, want p1 (scope key must not be removed)", got["project_id"])
	}
}

func TestMergeMetadataNestedRemoval(t *testing.T) {
	scope := Scope{UserID: "u1", ProjectID: "p1"}
	current := map[string]string{"stats_strength": "10", "stats_magic": "fire"}

	got := MergeMetadata(current, map[string]any{
		"stats": map[string]any{"magic": nil},
	}, scope)

	if _, ok := got["stats_magic"]; ok {
		t.Error("nested nil should remove the flattened key")
	}
	if got["stats_strength"] != "10" {
		t.Errorf("stats_strength = %q, want 10", got["stats_strength"])
	}
}

func TestWithScope(t *testing.T) {
	scope := Scope{UserID: "u1", ProjectID: "p1"}
	got := WithScope(nil, scope)
	if got[MetaUserID] != "u1" || got[MetaProjectID] != "p1" {
		t.Errorf("WithScope(nil) = %v", got)
	}

	got = WithScope(map[string]string{MetaUserID: "other"}, scope)
	if got[MetaUserID] != "u1" {
		t.Errorf("user_id = %q, want u1", got[MetaUserID])
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "123e4567-e89b-12d3-a456-426614174000", want: "123e4567"},
		{in: "abc", want: "abc"},
		{in: "  abc-def  ", want: "abcdef"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := ShortID(tt.in); got != tt.want {
			t.Errorf("ShortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCollectionName(t *testing.T) {
	scope := Scope{
		UserID:    "123e4567-e89b-12d3-a456-426614174000",
		ProjectID: "987fcdeb-51a2-43d7-8f6e-123456789abc",
	}
	want := "user_123e4567_project_987fcdeb"
	if got := CollectionName(scope); got != want {
		t.Errorf("CollectionName() = %q, want %q", got, want)
	}
}
