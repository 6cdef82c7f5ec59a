package convert

import "testing"

func TestParseTesseractTSV(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t10\t20\t30\t15\t96.5\tHello\n" +
		"5\t1\t1\t1\t1\t2\t50\t20\t25\t15\t91.0\tJohn\n"

	coords, err := parseTesseractTSV([]byte(tsv))
	if err != nil {
		t.Fatal(err)
	}
	if len(coords) != 2 {
		t.Fatalf("expected 2 word boxes, got %d", len(coords))
	}
	if coords[0].Text != "Hello" || coords[0].X1 != 10 || coords[0].X2 != 40 {
		t.Fatalf("unexpected first box: %+v", coords[0])
	}
	if coords[1].Text != "John" {
		t.Fatalf("unexpected second box: %+v", coords[1])
	}
}

func TestParseTesseractTSVSkipsBlankWords(t *testing.T) {
	tsv := "level\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"5\t0\t0\t10\t10\t90\t   \n"
	coords, err := parseTesseractTSV([]byte(tsv))
	if err != nil {
		t.Fatal(err)
	}
	if len(coords) != 0 {
		t.Fatalf("expected blank-text rows to be skipped, got %d", len(coords))
	}
}
