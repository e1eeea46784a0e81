package nessus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/nessus-authcheck/pkg/engine"
)

const twoHostReport = `<?xml version="1.0" ?>
<NessusClientData_v2>
  <Policy><policyName>Internal</policyName></Policy>
  <Report name="Q3 internal">
    <ReportHost name="10.0.0.1">
      <HostProperties><tag name="host-ip">10.0.0.1</tag></HostProperties>
      <ReportItem port="445" svc_name="cifs" protocol="tcp" severity="0" pluginID="24786" pluginName="Nessus Windows Scan Not Performed with Admin Privileges">
        <plugin_output>Message : Access denied</plugin_output>
      </ReportItem>
      <ReportItem port="0" svc_name="general" protocol="tcp" severity="0" pluginID="19506" pluginName="Nessus Scan Information">
        <plugin_output>Credentialed checks : no</plugin_output>
      </ReportItem>
    </ReportHost>
    <ReportHost name="10.0.0.2">
      <ReportItem port="22" svc_name="ssh" protocol="tcp" severity="2" pluginID="70658" pluginName="SSH Server CBC Mode Ciphers Enabled"/>
    </ReportHost>
  </Report>
</NessusClientData_v2>`

func mustParse(t *testing.T, doc string) Tree {
	t.Helper()
	tree, err := Parse([]byte(doc))
	require.NoError(t, err)
	return tree
}

func TestFlatten(t *testing.T) {
	records, err := Flatten(mustParse(t, twoHostReport))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, engine.FlatRecord{
		HostAddress: "10.0.0.1",
		ReportName:  "Q3 internal",
		Port:        445,
		ServiceName: "cifs",
		Protocol:    "tcp",
		PluginID:    24786,
		PluginName:  "Nessus Windows Scan Not Performed with Admin Privileges",
		OutputText:  "Message : Access denied",
	}, records[0])

	assert.Equal(t, "10.0.0.1", records[1].HostAddress)
	assert.Equal(t, 19506, records[1].PluginID)
	assert.Equal(t, 0, records[1].Port)

	// Items without plugin_output still produce a row with empty text.
	assert.Equal(t, "10.0.0.2", records[2].HostAddress)
	assert.Equal(t, 22, records[2].Port)
	assert.Equal(t, "", records[2].OutputText)
}

func TestFlattenSingleHostSingleItem(t *testing.T) {
	doc := `<NessusClientData_v2><Report name="r">
  <ReportHost name="host-a">
    <ReportItem port="3389" svc_name="msrdp" protocol="tcp" pluginID="110385" pluginName="Insufficient Privilege">
      <plugin_output>Nessus was unable to log in.</plugin_output>
    </ReportItem>
  </ReportHost>
</Report></NessusClientData_v2>`

	records, err := Flatten(mustParse(t, doc))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "host-a", records[0].HostAddress)
	assert.Equal(t, 3389, records[0].Port)
	assert.Equal(t, 110385, records[0].PluginID)
	assert.Equal(t, "Nessus was unable to log in.", records[0].OutputText)
}

func TestFlattenMissingContainers(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"other root", `<SomethingElse><Report/></SomethingElse>`},
		{"no report", `<NessusClientData_v2><Policy/></NessusClientData_v2>`},
		{"empty report", `<NessusClientData_v2><Report name="r"></Report></NessusClientData_v2>`},
		{"host without items", `<NessusClientData_v2><Report name="r"><ReportHost name="h"><HostProperties/></ReportHost></Report></NessusClientData_v2>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Flatten(mustParse(t, tt.doc))
			require.NoError(t, err)
			assert.Empty(t, records)
			assert.NotNil(t, records)
		})
	}
}

func TestFlattenSchemaMismatch(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"non-numeric port", `<NessusClientData_v2><Report name="r"><ReportHost name="h">
  <ReportItem port="ssh" pluginID="1" pluginName="p"/></ReportHost></Report></NessusClientData_v2>`},
		{"negative port", `<NessusClientData_v2><Report name="r"><ReportHost name="h">
  <ReportItem port="-1" pluginID="1" pluginName="p"/></ReportHost></Report></NessusClientData_v2>`},
		{"missing plugin id", `<NessusClientData_v2><Report name="r"><ReportHost name="h">
  <ReportItem port="22" pluginName="p"/></ReportHost></Report></NessusClientData_v2>`},
		{"host without name", `<NessusClientData_v2><Report name="r"><ReportHost>
  <ReportItem port="22" pluginID="1" pluginName="p"/></ReportHost></Report></NessusClientData_v2>`},
		{"host is text", `<NessusClientData_v2><Report name="r"><ReportHost>10.0.0.1</ReportHost></Report></NessusClientData_v2>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Flatten(mustParse(t, tt.doc))
			assert.ErrorIs(t, err, engine.ErrSchemaMismatch)
			assert.Nil(t, records)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	valid := `<NessusClientData_v2><Report name="r"><ReportHost name="h"><ReportItem port="1" pluginID="2"/></ReportHost></Report></NessusClientData_v2>`

	for _, doc := range []string{
		"",
		"   \n",
		"<<not xml",
		"<NessusClientData_v2><Report>",
		"just text",
		valid + "<<<<not xml",
		valid + "trailing text",
		valid + valid,
	} {
		_, err := Parse([]byte(doc))
		assert.ErrorIs(t, err, engine.ErrMalformedDocument, "input %q", doc)
	}
}

func TestParseAllowsTrailingMisc(t *testing.T) {
	doc := `<?xml version="1.0" ?>
<!-- exported scan -->
<NessusClientData_v2><Report name="r"><ReportHost name="h"><ReportItem port="1" pluginID="2"/></ReportHost></Report></NessusClientData_v2>
<!-- end -->
`
	records, err := Flatten(mustParse(t, doc))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
