/*
 * === This file is part of Hive ===
 *
 * Copyright 2025 the Hive authors.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package gera

// StringMap is the flavor of gera.Map used for machine variable stacks.
type StringMap = Map[string, string]

func MakeStringMap() *WrapMap[string, string] {
	return MakeMap[string, string]()
}

func MakeStringMapWithMap(fromMap map[string]string) *WrapMap[string, string] {
	return MakeMapWithMap(fromMap)
}

func MakeStringMapWithMapCopy(fromMap map[string]string) *WrapMap[string, string] {
	return MakeMapWithMapCopy(fromMap)
}
