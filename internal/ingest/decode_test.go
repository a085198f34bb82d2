package ingest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

func TestDecodeCSVUTF8(t *testing.T) {
	data := []byte("기준년월,부서명,매출액\n2024-01,공과대학,\"1,500\"\n2024-02,인문대학,300\n")

	table, err := Decode(data, "report.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"기준년월", "부서명", "매출액"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "공과대학", table.Rows[0]["부서명"])
	assert.Equal(t, "1,500", table.Rows[0]["매출액"])
}

func TestDecodeCSVEUCKR(t *testing.T) {
	utf8CSV := "기준년월,부서명\n2024-01,공과대학\n"
	enc, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(utf8CSV))
	require.NoError(t, err)

	table, err := Decode(enc, "legacy.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"기준년월", "부서명"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "공과대학", table.Rows[0]["부서명"])
}

func TestDecodeCSVLatin1Fallback(t *testing.T) {
	// 0x80 is not a valid UTF-8 start byte and not a valid CP949 lead
	// byte, so only the ISO 8859-1 fallback can decode it.
	data := []byte("period,note\n2024-01,\x80corp\n")

	table, err := Decode(data, "western.csv")
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "\u0080corp", table.Rows[0]["note"])
}

func TestDecodeCSVBOMStripped(t *testing.T) {
	data := []byte("\xef\xbb\xbf기준년월,부서명\n2024-01,공과대학\n")

	table, err := Decode(data, "bom.csv")
	require.NoError(t, err)
	assert.Equal(t, "기준년월", table.Headers[0])
}

func TestDecodeCSVRaggedRows(t *testing.T) {
	data := []byte("기준년월,부서명,매출액\n2024-01,공과대학\n")

	table, err := Decode(data, "short.csv")
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	_, present := table.Rows[0]["매출액"]
	assert.False(t, present)
}

func TestDecodeEmptyAndHeaderOnly(t *testing.T) {
	for _, data := range [][]byte{[]byte(""), []byte("기준년월,부서명\n")} {
		_, err := Decode(data, "empty.csv")
		assert.ErrorIs(t, err, ErrEmptyTable)
	}
}

func TestDecodeUnsupportedExtension(t *testing.T) {
	_, err := Decode([]byte("x"), "report.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestDecodeXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"기준년월", "부서명", "매출액"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"2024-01", "공과대학", 1500}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := Decode(buf.Bytes(), "report.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []string{"기준년월", "부서명", "매출액"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "2024-01", table.Rows[0]["기준년월"])
	assert.Equal(t, "1500", table.Rows[0]["매출액"])
}
