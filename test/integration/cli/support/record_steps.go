package support

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/lotgate/internal/record"
	"github.com/MeKo-Tech/lotgate/internal/testutil"
)

// workspaceConfig keeps the suite independent of tesseract and any
// region service on the host.
const workspaceConfig = `log_level: error
ocr:
  region_backend: none
downstream:
  template_file: YourTemplate.egpj
  templates_dir: templates
  outputs_dir: outputs
archive:
  enabled: true
  dir: archive
`

func (testCtx *TestContext) writeWorkspaceFile(name string, data []byte) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// aWorkspaceWithoutTemplate writes only the configuration file.
func (testCtx *TestContext) aWorkspaceWithoutTemplate() error {
	return testCtx.writeWorkspaceFile("lotgate.yaml", []byte(workspaceConfig))
}

// aWorkspace writes the configuration and a placeholder template.
func (testCtx *TestContext) aWorkspace() error {
	if err := testCtx.aWorkspaceWithoutTemplate(); err != nil {
		return err
	}
	return testCtx.writeWorkspaceFile(filepath.Join("templates", "YourTemplate.egpj"), []byte("# placeholder template\n"))
}

func (testCtx *TestContext) writeRecord(f testutil.RecordFixture) error {
	data, err := json.MarshalIndent(testutil.NewRecord(f), "", "  ")
	if err != nil {
		return fmt.Errorf("encode record %s: %w", f.LotID, err)
	}
	return testCtx.writeWorkspaceFile(filepath.Join("inputs", f.LotID+"_inputs.json"), data)
}

func (testCtx *TestContext) aRecordForLot(lotID string) error {
	return testCtx.writeRecord(testutil.RecordFixture{LotID: lotID, FloorArea: 1800})
}

func (testCtx *TestContext) aRecordForLotWithFloorArea(lotID string, area float64) error {
	return testCtx.writeRecord(testutil.RecordFixture{LotID: lotID, FloorArea: area})
}

// aRecordForLotWithout drops a dotted key, e.g. "duct.location".
func (testCtx *TestContext) aRecordForLotWithout(lotID, key string) error {
	return testCtx.writeRecord(testutil.RecordFixture{
		LotID:     lotID,
		FloorArea: 1800,
		Mutate: func(rec record.Record) {
			section, field, found := strings.Cut(key, ".")
			if !found {
				delete(rec, key)
				return
			}
			delete(rec.Section(section), field)
		},
	})
}

func (testCtx *TestContext) recordFiles(n int) error {
	for i := 1; i <= n; i++ {
		f := testutil.RecordFixture{LotID: fmt.Sprintf("Lot%d", i), FloorArea: float64(1500 + 100*i)}
		if err := testCtx.writeRecord(f); err != nil {
			return err
		}
	}
	return nil
}

func (testCtx *TestContext) aFileContaining(name, content string) error {
	return testCtx.writeWorkspaceFile(name, []byte(content))
}

// RegisterRecordSteps registers workspace and record fixture steps.
func (testCtx *TestContext) RegisterRecordSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a lotgate workspace$`, testCtx.aWorkspace)
	sc.Step(`^a lotgate workspace without a template$`, testCtx.aWorkspaceWithoutTemplate)
	sc.Step(`^a record for lot "([^"]*)"$`, testCtx.aRecordForLot)
	sc.Step(`^a record for lot "([^"]*)" with floor area (\d+(?:\.\d+)?)$`, testCtx.aRecordForLotWithFloorArea)
	sc.Step(`^a record for lot "([^"]*)" without "([^"]*)"$`, testCtx.aRecordForLotWithout)
	sc.Step(`^(\d+) record files in the inputs directory$`, testCtx.recordFiles)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, testCtx.aFileContaining)
}
