package persona

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		persona Persona
		wantErr string
	}{
		{
			name:    "valid",
			persona: Persona{Name: "Dana", Needs: []string{"pricing info"}},
		},
		{
			name:    "missing name",
			persona: Persona{Needs: []string{"pricing info"}},
			wantErr: "name is required",
		},
		{
			name:    "blank name",
			persona: Persona{Name: "   ", Needs: []string{"pricing info"}},
			wantErr: "name is required",
		},
		{
			name:    "no needs",
			persona: Persona{Name: "Dana"},
			wantErr: "no needs",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.persona.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestWantsVisualAnalysis(t *testing.T) {
	tests := []struct {
		name  string
		goals []string
		want  bool
	}{
		{"visual goal", []string{"Assess the visual design"}, true},
		{"case insensitive", []string{"VISUAL impression matters"}, true},
		{"no visual goal", []string{"Find pricing", "Compare features"}, false},
		{"no goals", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Persona{Name: "X", Needs: []string{"y"}, Goals: tt.goals}
			if got := p.WantsVisualAnalysis(); got != tt.want {
				t.Errorf("WantsVisualAnalysis() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFileSlug(t *testing.T) {
	p := Persona{Name: "Dana The Developer"}
	if got := p.FileSlug(); got != "dana_the_developer" {
		t.Errorf("FileSlug() = %q, want %q", got, "dana_the_developer")
	}
}
