/*
 * treewalk log-wrappers
 *
 * Copyright (c) 2026 Telenor Norge AS
 *
 * This library is free software; you can redistribute it and/or
 * modify it under the terms of the GNU Lesser General Public
 * License as published by the Free Software Foundation; either
 * version 2.1 of the License, or (at your option) any later version.
 *
 * This library is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
 * Lesser General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public
 * License along with this library; if not, write to the Free Software
 * Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston, MA
 * 02110-1301  USA
 */

package treewalk

/*
log.go is a thin wrapper around log, so the rest of the code can log
without caring what ends up doing the actual writing.

Debug/Debugf check Config.Debug before formatting anything, which keeps
debug-logging in the walker's per-response path cheap when it's off.
*/

import (
	"fmt"
	"log"
	"os"
)

// Init sets up log flags based on Config.Debug. Call it after the
// configuration is parsed.
func Init() {
	d := log.Default()
	if Config.Debug {
		d.SetFlags(log.Ltime | log.Lshortfile)
	} else {
		d.SetFlags(log.Ltime)
	}
}

func Log(v ...any) {
	log.Output(2, fmt.Sprint(v...))
}

func Logf(format string, v ...any) {
	log.Output(2, fmt.Sprintf(format, v...))
}

func Logln(v ...any) {
	log.Output(2, fmt.Sprintln(v...))
}

func Fatal(v ...any) {
	log.Output(2, fmt.Sprint(v...))
	os.Exit(1)
}

func Fatalf(format string, v ...any) {
	log.Output(2, fmt.Sprintf(format, v...))
	os.Exit(1)
}

func Debug(v ...any) {
	if Config.Debug {
		log.Output(2, fmt.Sprint(v...))
	}
}

func Debugf(format string, v ...any) {
	if Config.Debug {
		log.Output(2, fmt.Sprintf(format, v...))
	}
}

func Debugln(v ...any) {
	if Config.Debug {
		log.Output(2, fmt.Sprintln(v...))
	}
}
