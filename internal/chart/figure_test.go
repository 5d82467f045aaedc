package chart

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"effcurve/internal/catalog"
	"effcurve/internal/model"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func syntheticTable() *model.Table {
	return &model.Table{
		Columns: []string{"index", "Q", "L", "point", model.ColumnFillRate, model.ColumnMeanInventory},
		Rows: []model.ResultRow{
			{MethodIndex: 2, Q: 25000, L: 2, OperatingPoint: "1", FillRate: 0.90, MeanInventory: 1.2},
			{MethodIndex: 2, Q: 25000, L: 2, OperatingPoint: "2", FillRate: 0.95, MeanInventory: 1.5},
			{MethodIndex: 2, Q: 25000, L: 2, OperatingPoint: "3", FillRate: 0.99, MeanInventory: 2.0},
			// 干扰行：其他 L / Q / 方法
			{MethodIndex: 2, Q: 25000, L: 1, OperatingPoint: "1", FillRate: 0.92, MeanInventory: 0.4},
			{MethodIndex: 2, Q: 50000, L: 2, OperatingPoint: "1", FillRate: 0.97, MeanInventory: 9.0},
			{MethodIndex: 3, Q: 25000, L: 2, OperatingPoint: "1", FillRate: 0.96, MeanInventory: 1.0},
			{MethodIndex: 3, Q: 25000, L: 2, OperatingPoint: "2", FillRate: 0.98, MeanInventory: 3.0},
		},
	}
}

func TestBuild_SyntheticMethodII(t *testing.T) {
	t.Parallel()

	cat := catalog.Default()
	fig, err := Build(TableSource{Table: syntheticTable()}, cat, Selection{Q: 25000, LeadTime: 1, Methods: []string{"II"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if fig == nil || len(fig.Traces) != 1 {
		t.Fatalf("unexpected figure: %+v", fig)
	}

	tr := fig.Traces[0]
	wantX := []float64{1.2, 1.5, 2.0}
	wantY := []float64{0.90, 0.95, 0.99}
	if len(tr.X) != 3 || len(tr.Y) != 3 || len(tr.Text) != 3 {
		t.Fatalf("trace sizes x=%d y=%d text=%d", len(tr.X), len(tr.Y), len(tr.Text))
	}
	for i := range wantX {
		if tr.X[i] != wantX[i] || tr.Y[i] != wantY[i] {
			t.Errorf("point %d = (%v, %v), want (%v, %v)", i, tr.X[i], tr.Y[i], wantX[i], wantY[i])
		}
	}
	if tr.Text[0] != "Method II<br>FR: 0.900<br>Inventory: 1.200" {
		t.Errorf("hover[0] = %q", tr.Text[0])
	}
	if tr.Text[2] != "Method II<br>FR: 0.990<br>Inventory: 2.000" {
		t.Errorf("hover[2] = %q", tr.Text[2])
	}
	if tr.Name != "II" {
		t.Errorf("trace name = %q", tr.Name)
	}
	if fig.Title != "Efficiency Curves for Q = 25000, L = 1" {
		t.Errorf("title = %q", fig.Title)
	}
	if fig.XRange == nil || !approx(fig.XRange[0], 1.195) || !approx(fig.XRange[1], 2.005) {
		t.Errorf("x range = %v", fig.XRange)
	}
}

func TestBuild_NoSortByX(t *testing.T) {
	t.Parallel()

	table := &model.Table{Rows: []model.ResultRow{
		{MethodIndex: 1, Q: 25000, L: 1, FillRate: 0.99, MeanInventory: 3.0},
		{MethodIndex: 1, Q: 25000, L: 1, FillRate: 0.90, MeanInventory: 1.0},
		{MethodIndex: 1, Q: 25000, L: 1, FillRate: 0.95, MeanInventory: 2.0},
	}}

	fig, err := Build(TableSource{Table: table}, catalog.Default(), Selection{Q: 25000, LeadTime: 0, Methods: []string{"I"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []float64{3.0, 1.0, 2.0}
	for i, x := range fig.Traces[0].X {
		if x != want[i] {
			t.Fatalf("x[%d] = %v, want %v (row order must be kept)", i, x, want[i])
		}
	}
}

func TestBuild_SharedAxisRange(t *testing.T) {
	t.Parallel()

	table := &model.Table{Rows: []model.ResultRow{
		{MethodIndex: 1, Q: 50000, L: 2, FillRate: 0.9, MeanInventory: 1.0},
		{MethodIndex: 1, Q: 50000, L: 2, FillRate: 0.9, MeanInventory: 3.0},
		{MethodIndex: 4, Q: 50000, L: 2, FillRate: 0.9, MeanInventory: 2.0},
		{MethodIndex: 4, Q: 50000, L: 2, FillRate: 0.9, MeanInventory: 5.0},
		{MethodIndex: 5, Q: 50000, L: 2, FillRate: 0.9, MeanInventory: 0.1},
	}}

	fig, err := Build(TableSource{Table: table}, catalog.Default(), Selection{Q: 50000, LeadTime: 1, Methods: []string{"I", "IV"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if fig.XRange == nil || !approx(fig.XRange[0], 0.995) || !approx(fig.XRange[1], 5.005) {
		t.Fatalf("x range = %v, want [0.995, 5.005]", fig.XRange)
	}
	if fig.Traces[0].Name != "I" || fig.Traces[1].Name != "IV" {
		t.Errorf("traces not in selection order: %s, %s", fig.Traces[0].Name, fig.Traces[1].Name)
	}
}

func TestBuild_EmptyTraceDoesNotBreakRange(t *testing.T) {
	t.Parallel()

	cat := catalog.Default()
	src := TableSource{Table: syntheticTable()}

	fig, err := Build(src, cat, Selection{Q: 25000, LeadTime: 1, Methods: []string{"VII", "II"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !fig.Traces[0].Empty() {
		t.Fatalf("trace VII should be empty, got %d points", len(fig.Traces[0].X))
	}
	if fig.XRange == nil || !approx(fig.XRange[0], 1.195) || !approx(fig.XRange[1], 2.005) {
		t.Errorf("x range = %v, want [1.195, 2.005]", fig.XRange)
	}

	// 全部为空：无范围，不报错
	fig, err = Build(src, cat, Selection{Q: 50000, LeadTime: 0, Methods: []string{"VII"}})
	if err != nil {
		t.Fatalf("build all-empty: %v", err)
	}
	if fig.XRange != nil {
		t.Errorf("x range should be nil for all-empty selection, got %v", fig.XRange)
	}
	if fig.PointCount() != 0 {
		t.Errorf("point count = %d", fig.PointCount())
	}
}

func TestBuild_ReferenceLinesUseFullTable(t *testing.T) {
	t.Parallel()

	cat := catalog.Default()
	src := TableSource{Table: syntheticTable()}

	for _, sel := range []Selection{
		{Q: 25000, LeadTime: 1, Methods: []string{"II"}},
		{Q: 25000, LeadTime: 1, Methods: []string{"III"}},
		{Q: 50000, LeadTime: 0, Methods: []string{"VII"}},
	} {
		fig, err := Build(src, cat, sel)
		if err != nil {
			t.Fatalf("build %+v: %v", sel, err)
		}
		if len(fig.ReferenceLines) != len(ReferenceLevels) {
			t.Fatalf("reference lines = %d", len(fig.ReferenceLines))
		}
		for i, r := range fig.ReferenceLines {
			if r.Y != ReferenceLevels[i] {
				t.Errorf("line %d y = %v, want %v", i, r.Y, ReferenceLevels[i])
			}
			// 全表范围 [0.4, 9.0]
			if !approx(r.X0, 0.395) || !approx(r.X1, 9.005) {
				t.Errorf("line %d span = [%v, %v], want [0.395, 9.005]", i, r.X0, r.X1)
			}
		}
	}

	want := []float64{0.95, 0.975, 0.99, 0.995}
	for i := range want {
		if ReferenceLevels[i] != want[i] {
			t.Fatalf("ReferenceLevels = %v", ReferenceLevels)
		}
	}
}

func TestBuild_NoSelection(t *testing.T) {
	t.Parallel()

	fig, err := Build(TableSource{Table: syntheticTable()}, catalog.Default(), Selection{Q: 25000, LeadTime: 0})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if fig != nil {
		t.Fatalf("expected no figure, got %+v", fig)
	}
}

func TestBuild_InvalidSelection(t *testing.T) {
	t.Parallel()

	cat := catalog.Default()
	src := TableSource{Table: syntheticTable()}
	for _, sel := range []Selection{
		{Q: 1234, LeadTime: 0, Methods: []string{"I"}},
		{Q: 25000, LeadTime: 2, Methods: []string{"I"}},
		{Q: 25000, LeadTime: 0, Methods: []string{"VIII"}},
		{Q: 25000, LeadTime: 0, Methods: []string{"I", "I"}},
	} {
		if _, err := Build(src, cat, sel); !errors.Is(err, ErrInvalidSelection) {
			t.Errorf("Build(%+v) err = %v, want ErrInvalidSelection", sel, err)
		}
	}
}

type failingSource struct{}

func (failingSource) Trace(q, l, method int) ([]model.ResultRow, error) {
	return nil, errors.New("boom")
}

func (failingSource) InventoryRange() (float64, float64, bool, error) {
	return 0, 0, false, nil
}

func TestBuild_SourceError(t *testing.T) {
	t.Parallel()

	_, err := Build(failingSource{}, catalog.Default(), Selection{Q: 25000, LeadTime: 0, Methods: []string{"I"}})
	if err == nil {
		t.Fatal("expected error from failing source")
	}
}

func TestSplitMethods(t *testing.T) {
	t.Parallel()

	got := SplitMethods([]string{"II, III", "", "VII"})
	want := []string{"II", "III", "VII"}
	if len(got) != len(want) {
		t.Fatalf("SplitMethods = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SplitMethods[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if len(SplitMethods([]string{""})) != 0 {
		t.Error("empty value should give no methods")
	}
}

func TestPlotly(t *testing.T) {
	t.Parallel()

	fig, err := Build(TableSource{Table: syntheticTable()}, catalog.Default(), Selection{Q: 25000, LeadTime: 1, Methods: []string{"II", "III"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	b, err := json.Marshal(fig.Plotly())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out struct {
		Data []struct {
			Type      string    `json:"type"`
			Mode      string    `json:"mode"`
			Name      string    `json:"name"`
			X         []float64 `json:"x"`
			HoverInfo string    `json:"hoverinfo"`
		} `json:"data"`
		Layout struct {
			XAxis struct {
				Range []float64 `json:"range"`
			} `json:"xaxis"`
			HoverMode string `json:"hovermode"`
			Shapes    []struct {
				Type string  `json:"type"`
				Y0   float64 `json:"y0"`
				Y1   float64 `json:"y1"`
				Line struct {
					Dash string `json:"dash"`
				} `json:"line"`
			} `json:"shapes"`
		} `json:"layout"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(out.Data) != 2 || out.Data[0].Name != "II" || out.Data[1].Name != "III" {
		t.Fatalf("unexpected data: %+v", out.Data)
	}
	if out.Data[0].Mode != "markers+lines" || out.Data[0].HoverInfo != "text" || out.Data[0].Type != "scatter" {
		t.Errorf("unexpected trace props: %+v", out.Data[0])
	}
	if len(out.Layout.XAxis.Range) != 2 || !approx(out.Layout.XAxis.Range[0], 0.995) || !approx(out.Layout.XAxis.Range[1], 3.005) {
		t.Errorf("x range = %v", out.Layout.XAxis.Range)
	}
	if out.Layout.HoverMode != "closest" {
		t.Errorf("hovermode = %q", out.Layout.HoverMode)
	}
	if len(out.Layout.Shapes) != 4 || out.Layout.Shapes[0].Y0 != 0.95 || out.Layout.Shapes[0].Y1 != 0.95 || out.Layout.Shapes[0].Line.Dash != "dot" {
		t.Errorf("unexpected shapes: %+v", out.Layout.Shapes)
	}
}

func TestRenderPNG(t *testing.T) {
	t.Parallel()

	cat := catalog.Default()
	src := TableSource{Table: syntheticTable()}

	fig, err := Build(src, cat, Selection{Q: 25000, LeadTime: 1, Methods: []string{"II", "VII", "III"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var buf bytes.Buffer
	if err := RenderPNG(fig, &buf, 640, 400); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("output is not a PNG (%d bytes)", buf.Len())
	}
}

func TestRenderPNG_NothingToRender(t *testing.T) {
	t.Parallel()

	if err := RenderPNG(nil, &bytes.Buffer{}, 0, 0); !errors.Is(err, ErrNothingToRender) {
		t.Errorf("nil figure err = %v", err)
	}

	fig, err := Build(TableSource{Table: &model.Table{}}, catalog.Default(), Selection{Q: 25000, LeadTime: 0, Methods: []string{"I"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := RenderPNG(fig, &bytes.Buffer{}, 0, 0); !errors.Is(err, ErrNothingToRender) {
		t.Errorf("empty table err = %v, want ErrNothingToRender", err)
	}
}
