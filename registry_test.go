// registry_test.go
package gem

import (
	"reflect"
	"testing"
)

func loadReg(t *testing.T, src string) *Registry {
	t.Helper()
	r, err := LoadRegistry(src)
	if err != nil {
		t.Fatalf("LoadRegistry error: %v\nsource:\n%s", err, src)
	}
	return r
}

func wantRegistryErr(t *testing.T, src string, kind RegistryErrKind) {
	t.Helper()
	_, err := LoadRegistry(src)
	re, ok := err.(*RegistryError)
	if !ok {
		t.Fatalf("want *RegistryError, got %v\nsource:\n%s", err, src)
	}
	if re.Kind != kind {
		t.Fatalf("want kind %v, got %v (%s)", kind, re.Kind, re.Error())
	}
}

func Test_Registry_Load_And_Lookup(t *testing.T) {
	r := loadReg(t, `
Scenes {
    default: main_menu
    main_menu: #scenes:main_menu
    level_one: #scenes:level_one
}
`)
	if r.Default != "main_menu" {
		t.Fatalf("default = %q", r.Default)
	}
	id, ok := r.Lookup("main_menu")
	if !ok || id.Path() != "scenes/main_menu.gem" {
		t.Fatalf("main_menu -> %v, %v", id, ok)
	}
	if !reflect.DeepEqual(r.Names(), []string{"main_menu", "level_one"}) {
		t.Fatalf("names = %v", r.Names())
	}
}

func Test_Registry_EntryKey_Is_Accepted(t *testing.T) {
	r := loadReg(t, `
Scenes {
    entry: start
    start: #scenes:start
}
`)
	if r.Default != "start" {
		t.Fatalf("default = %q", r.Default)
	}
}

func Test_Registry_DefaultNotFound(t *testing.T) {
	wantRegistryErr(t, `
Scenes {
    default: main_menu
    other: #scenes:other
}
`, RegistryDefaultNotFound)
}

func Test_Registry_MissingDefault(t *testing.T) {
	wantRegistryErr(t, `
Scenes {
    main_menu: #scenes:main_menu
}
`, RegistryMissingDefault)
}

func Test_Registry_DuplicateName(t *testing.T) {
	wantRegistryErr(t, `
Scenes {
    default: main_menu
    main_menu: #scenes:main_menu
    main_menu: #scenes:other
}
`, RegistryDuplicateName)
}

func Test_Registry_BareIdentifierValue_Rejected(t *testing.T) {
	wantRegistryErr(t, `
Scenes {
    default: main_menu
    main_menu: not_a_directive
}
`, RegistryInvalidEntry)
}
