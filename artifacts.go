/*
 * Copyright (c) 2020 Siemens AG
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 * Author(s): Jonas Plum
 */

package artifactextractor

import (
	"github.com/imdario/mergo"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// An Artifact maps a well known location inside a Windows volume to a
// category folder in the output directory. Locations may contain glob
// patterns ('*', '?', '[...]'). PerUser locations are relative to a user
// profile directory and are resolved for every profile below /Users.
type Artifact struct {
	Location  string `yaml:"location"`
	Category  string `yaml:"category"`
	Directory bool   `yaml:"directory,omitempty"`
	PerUser   bool   `yaml:"per_user,omitempty"`
}

// A Catalogue is the list of artifacts an extraction run looks for.
type Catalogue struct {
	Artifacts []Artifact `yaml:"artifacts"`
}

const (
	locRegistry  = "/Windows/System32/config/"
	locWinEvt    = "/Windows/System32/winevt/logs/"
	locAppCompat = "/Windows/AppCompat/Programs/"
	locRecent    = "/AppData/Roaming/Microsoft/Windows/Recent"
)

// DefaultCatalogue returns the built-in table of common Windows artifacts.
func DefaultCatalogue() Catalogue {
	return Catalogue{Artifacts: []Artifact{
		{Location: locRegistry + "SAM", Category: "Registry"},
		{Location: locRegistry + "SECURITY", Category: "Registry"},
		{Location: locRegistry + "SOFTWARE", Category: "Registry"},
		{Location: locRegistry + "SYSTEM", Category: "Registry"},

		{Location: locRegistry + "RegBack/SAM", Category: "Registry/RegBack"},
		{Location: locRegistry + "RegBack/SECURITY", Category: "Registry/RegBack"},
		{Location: locRegistry + "RegBack/SOFTWARE", Category: "Registry/RegBack"},
		{Location: locRegistry + "RegBack/SYSTEM", Category: "Registry/RegBack"},

		{Location: locWinEvt + "Application.evtx", Category: "OSLogs"},
		{Location: locWinEvt + "Security.evtx", Category: "OSLogs"},
		{Location: locWinEvt + "Setup.evtx", Category: "OSLogs"},
		{Location: locWinEvt + "System.evtx", Category: "OSLogs"},
		{Location: locWinEvt + "Microsoft-Windows-DriverFrameworks-UserMode-Operational.evtx", Category: "OSLogs"},
		{Location: locWinEvt + "Microsoft-Windows-PowerShell%4Operational.evtx", Category: "OSLogs"},
		{Location: locWinEvt + "Microsoft-Windows-TaskScheduler%4Operational.evtx", Category: "OSLogs"},
		{Location: locWinEvt + "Microsoft-Windows-TerminalServices-RemoteConnectionManager%4Operational.evtx", Category: "OSLogs"},
		{Location: locWinEvt + "Microsoft-Windows-TerminalServices-LocalSessionManager%4Operational.evtx", Category: "OSLogs"},
		{Location: locWinEvt + "Microsoft-Windows-Windows Firewall With Advanced Security%4Firewall.evtx", Category: "OSLogs"},

		{Location: locAppCompat + "Amcache.hve", Category: "MRU/Prog"},
		{Location: locAppCompat + "RecentFileCache.bcf", Category: "MRU/Prog"},

		{Location: "/Windows/Inf/setupapi.dev.log", Category: "Registry"},

		{Location: "/Windows/Tasks/*.job", Category: "MRU/Prog/tasks"},

		{Location: "/Windows/Prefetch", Category: "MRU/Prog/prefetch", Directory: true},
		{Location: "/Windows/System32/sru", Category: "MRU/Prog/srum", Directory: true},
		{Location: "/Windows/System32/wbem/Repository", Category: "MRU/Prog/sccm", Directory: true},

		{Location: "/NTUSER.DAT", Category: "Registry", PerUser: true},
		{Location: "/AppData/Local/Microsoft/Windows/UsrClass.dat", Category: "Registry", PerUser: true},

		{Location: locRecent, Category: "MRU/Files/lnk", Directory: true, PerUser: true},
		{Location: locRecent + "/AutomaticDestinations", Category: "MRU/Files/jmp", Directory: true, PerUser: true},
		{Location: locRecent + "/CustomDestinations", Category: "MRU/Files/jmp", Directory: true, PerUser: true},
		{Location: "/AppData/Local/Microsoft/Windows/WebCache", Category: "MRU/Files/webcache", Directory: true, PerUser: true},
	}}
}

// LoadCatalogue reads artifact definitions from a YAML file and appends the
// built-in catalogue, so custom definitions never replace the defaults.
func LoadCatalogue(fs afero.Fs, path string) (Catalogue, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Catalogue{}, errors.Wrap(err, "could not read artifact definitions")
	}

	var catalogue Catalogue
	if err := yaml.Unmarshal(data, &catalogue); err != nil {
		return Catalogue{}, errors.Wrap(err, "could not parse artifact definitions")
	}

	defaults := DefaultCatalogue()
	if err := mergo.Merge(&catalogue, defaults, mergo.WithAppendSlice); err != nil {
		return Catalogue{}, errors.Wrap(err, "could not merge artifact definitions")
	}
	return catalogue, nil
}
