// Copyright © 2023 Rak Laptudirm <rak@laptudirm.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stats

import "math"

// Elo returns the estimated elo difference of a player with the given record
// along with its 95% lower and upper bounds.
func Elo(ws, ds, ls int) (muMin float64, mu float64, muMax float64) {
	N := float64(ws + ds + ls)

	if N == 0 {
		return 0, 0, 0
	}

	w := float64(ws) / N
	d := float64(ds) / N
	l := float64(ls) / N

	mu = w + d/2

	sigma := math.Sqrt(w*math.Pow(1-mu, 2)+d*math.Pow(0.5-mu, 2)+l*math.Pow(0-mu, 2)) / math.Sqrt(N)

	muMin = mu + phiInv(0.025)*sigma
	muMax = mu + phiInv(0.975)*sigma

	return scoreToElo(muMin), scoreToElo(mu), scoreToElo(muMax)
}

// scoreEpsilon bounds scores away from 0 and 1, capping a sweep near ±1200.
const scoreEpsilon = 1e-3

// scoreToElo maps an expected score to an elo difference. The score is
// clamped first so that the mapping stays monotonic.
func scoreToElo(x float64) float64 {
	x = math.Min(math.Max(x, scoreEpsilon), 1-scoreEpsilon)
	return -400 * math.Log10(1/x-1)
}

func phiInv(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}
